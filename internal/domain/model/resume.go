package model

import (
	"encoding/json"
	"io"
	"time"
)

// Resume: версия резюме в библиотеке пользователя.
type Resume struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Notes     *string  `json:"notes,omitempty"`
	PDFURL    string   `json:"pdf_url"`
	TexURL    *string  `json:"tex_url,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// UnmarshalJSON принимает last_updated как синоним updated_at.
func (r *Resume) UnmarshalJSON(data []byte) error {
	type plain Resume
	var aux struct {
		plain
		LastUpdated string `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Resume(aux.plain)
	if r.UpdatedAt == "" {
		r.UpdatedAt = aux.LastUpdated
	}
	return nil
}

// ResumeList: снимок библиотеки резюме из кэша.
type ResumeList struct {
	Items     []Resume
	FetchedAt time.Time
}

// Len: количество резюме (nil-безопасно).
func (l *ResumeList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// FilePart: файл multipart-загрузки.
type FilePart struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// ResumeUpload: данные формы загрузки резюме.
type ResumeUpload struct {
	Name  string
	Notes string
	Tags  []string
	PDF   *FilePart
	Tex   *FilePart
}

// ResumePatch: тело PATCH /resumes/{id} (только метаданные).
type ResumePatch struct {
	Name  Nullable[string]   `json:"name,omitzero"`
	Notes Nullable[string]   `json:"notes,omitzero"`
	Tags  Nullable[[]string] `json:"tags,omitzero"`
}
