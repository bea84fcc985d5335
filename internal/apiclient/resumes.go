package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
)

// ListResumes: GET /resumes/.
func (c *Client) ListResumes(ctx context.Context) ([]model.Resume, error) {
	var resumes []model.Resume
	err := c.do(ctx, request{
		op:     "list_resumes",
		method: http.MethodGet,
		path:   "/resumes/",
	}, &resumes)
	if err != nil {
		return nil, err
	}
	if resumes == nil {
		resumes = []model.Resume{}
	}
	return resumes, nil
}

// GetResume: GET /resumes/{id}.
func (c *Client) GetResume(ctx context.Context, id string) (*model.Resume, error) {
	var resume model.Resume
	err := c.do(ctx, request{
		op:     "get_resume",
		method: http.MethodGet,
		path:   "/resumes/" + url.PathEscape(id),
	}, &resume)
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// UploadResume: POST /resumes/ (multipart/form-data).
// Поля: name, notes, tags (через запятую), pdf_file, tex_file.
func (c *Client) UploadResume(ctx context.Context, upload model.ResumeUpload) (*model.Resume, error) {
	const op = "upload_resume"
	if upload.PDF == nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("отсутствует PDF-файл")}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{{"name", upload.Name}}
	if upload.Notes != "" {
		fields = append(fields, [2]string{"notes", upload.Notes})
	}
	if len(upload.Tags) > 0 {
		fields = append(fields, [2]string{"tags", strings.Join(upload.Tags, ",")})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("поле %s: %w", f[0], err)}
		}
	}

	if err := writeFilePart(mw, "pdf_file", upload.PDF); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if upload.Tex != nil {
		if err := writeFilePart(mw, "tex_file", upload.Tex); err != nil {
			return nil, &Error{Op: op, Err: err}
		}
	}
	if err := mw.Close(); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("завершение multipart: %w", err)}
	}

	var resume model.Resume
	err := c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		path:        "/resumes/",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &resume)
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// writeFilePart копирует файл в multipart-часть.
func writeFilePart(mw *multipart.Writer, field string, part *model.FilePart) error {
	w, err := mw.CreateFormFile(field, part.Filename)
	if err != nil {
		return fmt.Errorf("файл %s: %w", field, err)
	}
	if _, err := io.Copy(w, part.Content); err != nil {
		return fmt.Errorf("копирование %s: %w", field, err)
	}
	return nil
}

// UpdateResume: PATCH /resumes/{id}.
func (c *Client) UpdateResume(ctx context.Context, id string, patch model.ResumePatch) (*model.Resume, error) {
	req, err := jsonRequest("update_resume", http.MethodPatch, "/resumes/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	var resume model.Resume
	if err := c.do(ctx, req, &resume); err != nil {
		return nil, err
	}
	return &resume, nil
}

// CloneResume: POST /resumes/{id}/clone.
func (c *Client) CloneResume(ctx context.Context, id string) (*model.Resume, error) {
	var resume model.Resume
	err := c.do(ctx, request{
		op:     "clone_resume",
		method: http.MethodPost,
		path:   "/resumes/" + url.PathEscape(id) + "/clone",
	}, &resume)
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// DeleteResume: DELETE /resumes/{id}.
func (c *Client) DeleteResume(ctx context.Context, id string) error {
	return c.do(ctx, request{
		op:     "delete_resume",
		method: http.MethodDelete,
		path:   "/resumes/" + url.PathEscape(id),
	}, nil)
}
