// resume_library.go: библиотека версий резюме пользователя:
// список, загрузка PDF/LaTeX, метаданные, клонирование, удаление.
package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/apiclient"
	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
	"github.com/Dhanushranga1/Resumitory/internal/querycache"
)

// Ограничения размера файлов резюме.
const (
	MaxPDFSize int64 = 5 << 20
	MaxTexSize int64 = 1 << 20
)

// resumesKey: ключ кэша списка резюме.
var resumesKey = querycache.Key{CollectionResumes}

// ResumesAPI: операции backend API над резюме.
type ResumesAPI interface {
	ListResumes(ctx context.Context) ([]model.Resume, error)
	UploadResume(ctx context.Context, upload model.ResumeUpload) (*model.Resume, error)
	UpdateResume(ctx context.Context, id string, patch model.ResumePatch) (*model.Resume, error)
	CloneResume(ctx context.Context, id string) (*model.Resume, error)
	DeleteResume(ctx context.Context, id string) error
}

// ResumeResult: данные для отрисовки библиотеки.
type ResumeResult struct {
	Items     []model.Resume
	LoadError *LoadError
}

// ResumeLibrary: операции над библиотекой резюме.
type ResumeLibrary struct {
	api     ResumesAPI
	cache   *querycache.Cache
	tracker *mutationTracker
	now     func() time.Time
	logger  *slog.Logger
}

// NewResumeLibrary создаёт ResumeLibrary.
func NewResumeLibrary(api ResumesAPI, cache *querycache.Cache, logger *slog.Logger) *ResumeLibrary {
	l := logger.With(slog.String("component", "resume_library"))
	return &ResumeLibrary{
		api:     api,
		cache:   cache,
		tracker: newMutationTracker(CollectionResumes, cache, l),
		now:     time.Now,
		logger:  l,
	}
}

// Fetch возвращает снимок библиотеки из кэша (общий ключ resumes).
func (r *ResumeLibrary) Fetch(ctx context.Context, scope string) (*model.ResumeList, error) {
	return querycache.Fetch(ctx, r.cache, scope, resumesKey,
		func(ctx context.Context) (*model.ResumeList, error) {
			items, err := r.api.ListResumes(ctx)
			if err != nil {
				return nil, err
			}
			return &model.ResumeList{Items: items, FetchedAt: r.now()}, nil
		})
}

// List возвращает библиотеку; ошибка backend: в ResumeResult.LoadError.
func (r *ResumeLibrary) List(ctx context.Context, scope string) (ResumeResult, error) {
	list, err := r.Fetch(ctx, scope)
	if err != nil {
		if ctx.Err() != nil {
			return ResumeResult{}, ctx.Err()
		}
		r.logger.Warn("Ошибка загрузки библиотеки резюме", slog.String("error", err.Error()))
		return ResumeResult{
			Items:     []model.Resume{},
			LoadError: &LoadError{Message: apiclient.Message(err), Err: err},
		}, nil
	}
	return ResumeResult{Items: list.Items}, nil
}

// Get возвращает резюме из снимка библиотеки.
// Отсутствующее резюме: ErrResumeNotFound.
func (r *ResumeLibrary) Get(ctx context.Context, scope, id string) (*model.Resume, error) {
	list, err := r.Fetch(ctx, scope)
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		if list.Items[i].ID == id {
			resume := list.Items[i]
			return &resume, nil
		}
	}
	return nil, ErrResumeNotFound
}

// Upload загружает новую версию резюме.
func (r *ResumeLibrary) Upload(ctx context.Context, scope string, upload model.ResumeUpload) (*model.Resume, error) {
	upload.Name = strings.TrimSpace(upload.Name)
	upload.Notes = strings.TrimSpace(upload.Notes)
	if upload.Tex != nil && upload.Tex.Filename == "" {
		upload.Tex = nil
	}
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	var created *model.Resume
	err := r.tracker.run(ctx, scope, MutationUploadResume, "", func(ctx context.Context) error {
		var err error
		created, err = r.api.UploadResume(ctx, upload)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Резюме загружено", slog.String("id", created.ID))
	return created, nil
}

// Update меняет метаданные резюме.
func (r *ResumeLibrary) Update(ctx context.Context, scope, id string, patch model.ResumePatch) (*model.Resume, error) {
	if name, ok := patch.Name.Get(); patch.Name.IsNull() || (ok && strings.TrimSpace(name) == "") {
		return nil, newValidationError("name", "validation.name_required")
	}
	var updated *model.Resume
	err := r.tracker.run(ctx, scope, MutationUpdateResume, id, func(ctx context.Context) error {
		var err error
		updated, err = r.api.UpdateResume(ctx, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Clone создаёт копию резюме; backend добавляет к имени " (Copy)".
func (r *ResumeLibrary) Clone(ctx context.Context, scope, id string) (*model.Resume, error) {
	var cloned *model.Resume
	err := r.tracker.run(ctx, scope, MutationCloneResume, id, func(ctx context.Context) error {
		var err error
		cloned, err = r.api.CloneResume(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Резюме клонировано",
		slog.String("source", id),
		slog.String("id", cloned.ID),
	)
	return cloned, nil
}

// Remove удаляет резюме после подтверждения.
func (r *ResumeLibrary) Remove(ctx context.Context, scope, id, prompt string, confirmer Confirmer) error {
	if err := confirm(ctx, confirmer, prompt); err != nil {
		return err
	}
	err := r.tracker.run(ctx, scope, MutationRemoveResume, id, func(ctx context.Context) error {
		return r.api.DeleteResume(ctx, id)
	})
	if err != nil {
		return err
	}
	r.logger.Info("Резюме удалено", slog.String("id", id))
	return nil
}

// State возвращает состояние мутации над резюме.
func (r *ResumeLibrary) State(scope string, kind MutationKind, target string) MutationState {
	return r.tracker.state(scope, kind, target)
}

// ForgetScope удаляет состояния мутаций пользователя.
func (r *ResumeLibrary) ForgetScope(scope string) {
	r.tracker.forgetScope(scope)
}

// ParseTags разбирает теги через запятую: обрезает пробелы,
// отбрасывает пустые и повторы, сохраняя порядок.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// validateUpload проверяет форму загрузки до запроса.
func validateUpload(u model.ResumeUpload) error {
	if u.Name == "" {
		return newValidationError("name", "validation.name_required")
	}
	if u.PDF == nil || u.PDF.Filename == "" {
		return newValidationError("pdf_file", "validation.pdf_required")
	}
	if !hasExt(u.PDF.Filename, ".pdf") {
		return newValidationError("pdf_file", "validation.pdf_type")
	}
	if u.PDF.Size > MaxPDFSize {
		return newValidationError("pdf_file", "validation.pdf_too_large")
	}
	if u.Tex != nil && u.Tex.Filename != "" {
		if !hasExt(u.Tex.Filename, ".tex") {
			return newValidationError("tex_file", "validation.tex_type")
		}
		if u.Tex.Size > MaxTexSize {
			return newValidationError("tex_file", "validation.tex_too_large")
		}
	}
	return nil
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
