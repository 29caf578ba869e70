package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"quizgen-client/internal/quiz"
)

// MaxUploadBytes is the per-file upload limit.
const MaxUploadBytes int64 = 10 << 20

var AllowedExtensions = []string{".pdf", ".txt", ".md", ".docx"}

var (
	ErrNoSources          = errors.New("at least one file or video URL is required")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file exceeds the 10MB limit")
	ErrInvalidMaxQuestion = errors.New("max questions must not be negative")
	ErrInvalidVideoURL    = errors.New("video URL must be http or https")
)

// UploadFile is read from Reader when set, otherwise from Path.
type UploadFile struct {
	Name   string
	Path   string
	Reader io.Reader
	Size   int64
}

func (f UploadFile) fileName() string {
	if strings.TrimSpace(f.Name) != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

type GenerateRequest struct {
	Files        []UploadFile
	VideoURLs    []string
	MaxQuestions int
	Difficulty   quiz.Difficulty
	CustomPrompt string
}

type GenerateResponse struct {
	QuizID  string `json:"quizId"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (r GenerateRequest) Validate() error {
	videos := 0
	for _, raw := range r.VideoURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return fmt.Errorf("%q: %w", raw, ErrInvalidVideoURL)
		}
		videos++
	}
	if len(r.Files) == 0 && videos == 0 {
		return ErrNoSources
	}

	for _, file := range r.Files {
		name := file.fileName()
		if !allowedExtension(name) {
			return fmt.Errorf("%s: %w (allowed: %s)", name, ErrUnsupportedFile, strings.Join(AllowedExtensions, ", "))
		}
		size := file.Size
		if file.Reader == nil {
			info, err := os.Stat(file.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			size = info.Size()
		}
		if size > MaxUploadBytes {
			return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
		}
	}

	if r.MaxQuestions < 0 {
		return ErrInvalidMaxQuestion
	}
	if _, err := quiz.ParseDifficulty(string(r.Difficulty)); err != nil {
		return err
	}
	return nil
}

// GenerateQuiz uploads source material and asks the backend to build a quiz.
func (c *HTTPClient) GenerateQuiz(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return GenerateResponse{}, err
	}

	body, contentType, err := encodeGenerateForm(req)
	if err != nil {
		return GenerateResponse{}, err
	}

	var payload GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/quizzes/generate", body, contentType, &payload); err != nil {
		return GenerateResponse{}, err
	}
	return payload, nil
}

func encodeGenerateForm(req GenerateRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	for _, file := range req.Files {
		if err := writeFilePart(form, file); err != nil {
			return nil, "", err
		}
	}
	for _, raw := range req.VideoURLs {
		if raw = strings.TrimSpace(raw); raw != "" {
			if err := form.WriteField("videoUrls", raw); err != nil {
				return nil, "", err
			}
		}
	}
	if req.MaxQuestions > 0 {
		if err := form.WriteField("max_questions", strconv.Itoa(req.MaxQuestions)); err != nil {
			return nil, "", err
		}
	}
	if difficulty, _ := quiz.ParseDifficulty(string(req.Difficulty)); difficulty != "" {
		if err := form.WriteField("difficulty", string(difficulty)); err != nil {
			return nil, "", err
		}
	}
	if prompt := strings.TrimSpace(req.CustomPrompt); prompt != "" {
		if err := form.WriteField("custom_prompt", prompt); err != nil {
			return nil, "", err
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return &buf, form.FormDataContentType(), nil
}

func writeFilePart(form *multipart.Writer, file UploadFile) error {
	name := file.fileName()
	source := file.Reader
	if source == nil {
		opened, err := os.Open(file.Path)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer opened.Close()
		source = opened
	}

	part, err := form.CreateFormFile("files", name)
	if err != nil {
		return err
	}
	written, err := io.Copy(part, io.LimitReader(source, MaxUploadBytes+1))
	if err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	if written > MaxUploadBytes {
		return fmt.Errorf("%s: %w", name, ErrFileTooLarge)
	}
	return nil
}
