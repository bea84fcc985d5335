package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
)

func newTestForms(api *fakeAPI, inv Invalidator) *FormController {
	coord := NewApplicationCoordinator(api, inv, testLogger())
	fc := NewFormController(coord, 64, time.Minute, testLogger())
	fc.now = func() time.Time { return time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC) }
	return fc
}

func TestFormController_OpenCreateDefaults(t *testing.T) {
	fc := newTestForms(&fakeAPI{}, &recordingInvalidator{})
	f := fc.OpenCreate("u")

	if f.Token == "" || f.State != FormIdle {
		t.Fatalf("форма = %+v", f)
	}
	if f.Values.Status != "applied" || f.Values.DateApplied != "2024-03-15" {
		t.Errorf("значения по умолчанию = %+v", f.Values)
	}
	if f.Kind != FormFull || f.Mode != FormModeCreate {
		t.Errorf("вид/режим = %s/%s", f.Kind, f.Mode)
	}
}

func TestFormController_LookupIsolatedByScope(t *testing.T) {
	fc := newTestForms(&fakeAPI{}, &recordingInvalidator{})
	f := fc.OpenQuickAdd("alice")

	if _, err := fc.Lookup("alice", f.Token); err != nil {
		t.Errorf("своя форма: %v", err)
	}
	if _, err := fc.Lookup("bob", f.Token); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("чужая форма: ожидалась ErrFormNotFound, получено %v", err)
	}
	if _, err := fc.Lookup("alice", "missing"); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("неизвестный токен: %v", err)
	}
}

func TestFormController_QuickAddValidationSkipsAPI(t *testing.T) {
	api := &fakeAPI{}
	inv := &recordingInvalidator{}
	fc := newTestForms(api, inv)
	f := fc.OpenQuickAdd("u")

	_, form, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, FormValues{Company: "", Role: "SWE"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "company" {
		t.Fatalf("ожидалась ошибка валидации company, получено %v", err)
	}
	if form.State != FormIdle || form.Invalid == nil {
		t.Errorf("форма после валидации = %+v", form)
	}
	if form.Values.Role != "SWE" {
		t.Error("введённые значения должны сохраняться")
	}
	if api.totalCalls() != 0 || len(inv.list()) != 0 {
		t.Error("запросов и инвалидаций быть не должно")
	}
}

func TestFormController_QuickAddSuccessCloses(t *testing.T) {
	api := &fakeAPI{}
	inv := &recordingInvalidator{}
	fc := newTestForms(api, inv)
	f := fc.OpenQuickAdd("u")

	app, form, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, FormValues{Company: " Acme ", Role: "SWE"})
	if err != nil {
		t.Fatal(err)
	}
	if app.ID != "quick-1" || form.State != FormClosed {
		t.Errorf("результат = %+v, форма = %+v", app, form)
	}
	if api.lastQuick.Company != "Acme" || api.lastQuick.ResumeID != nil {
		t.Errorf("тело запроса = %+v", api.lastQuick)
	}
	if got := inv.list(); len(got) != 1 || got[0] != "u/applications" {
		t.Errorf("инвалидации = %v", got)
	}
	if _, err := fc.Lookup("u", f.Token); !errors.Is(err, ErrFormNotFound) {
		t.Error("закрытая форма должна удаляться из реестра")
	}
}

func TestFormController_FailureReturnsToIdle(t *testing.T) {
	api := &fakeAPI{createErr: backendDown}
	fc := newTestForms(api, &recordingInvalidator{})
	f := fc.OpenQuickAdd("u")

	_, form, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, FormValues{Company: "Acme", Role: "SWE"})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if form.State != FormIdle || form.Err == nil || form.Err.Message != "Internal Server Error" {
		t.Errorf("форма = %+v", form)
	}

	api.createErr = nil
	if _, _, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, FormValues{Company: "Acme", Role: "SWE"}); err != nil {
		t.Errorf("повторная отправка после ошибки: %v", err)
	}
}

// blockingAPI блокирует создание до сигнала.
type blockingAPI struct {
	fakeAPI
	entered chan struct{}
	release chan struct{}
}

func (b *blockingAPI) QuickCreateApplication(ctx context.Context, draft model.QuickDraft) (*model.Application, error) {
	close(b.entered)
	<-b.release
	return b.fakeAPI.QuickCreateApplication(ctx, draft)
}

func TestFormController_SubmitInFlight(t *testing.T) {
	api := &blockingAPI{entered: make(chan struct{}), release: make(chan struct{})}
	coord := NewApplicationCoordinator(api, &recordingInvalidator{}, testLogger())
	fc := NewFormController(coord, 8, time.Minute, testLogger())
	f := fc.OpenQuickAdd("u")
	values := FormValues{Company: "Acme", Role: "SWE"}

	done := make(chan error, 1)
	go func() {
		_, _, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, values)
		done <- err
	}()
	<-api.entered

	_, form, err := fc.SubmitQuickAdd(context.Background(), "u", f.Token, values)
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("ожидалась ErrSubmitInFlight, получено %v", err)
	}
	if form.State != FormSubmitting {
		t.Errorf("состояние = %s", form.State)
	}

	close(api.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := api.callCount("quick"); n != 1 {
		t.Errorf("запросов = %d, ожидался 1", n)
	}
}

func TestFormController_EditPrefillAndNullPatch(t *testing.T) {
	api := &fakeAPI{}
	fc := newTestForms(api, &recordingInvalidator{})
	snapshot := model.Application{
		ID:           "a1",
		Company:      "Acme",
		Role:         "SWE",
		Status:       model.StatusInterview,
		DateApplied:  "2024-02-10T00:00:00",
		FollowUpDate: model.StringPtr("2024-02-20"),
		Notes:        model.StringPtr("звонок"),
	}

	f := fc.OpenEdit("u", snapshot)
	snapshot.Company = "изменено после открытия"

	want := FormValues{
		Company:      "Acme",
		Role:         "SWE",
		Status:       "interview",
		DateApplied:  "2024-02-10",
		FollowUpDate: "2024-02-20",
		Notes:        "звонок",
	}
	if f.Values != want {
		t.Fatalf("предзаполнение = %+v, ожидалось %+v", f.Values, want)
	}

	values := f.Values
	values.FollowUpDate = ""
	if _, _, err := fc.SubmitFull(context.Background(), "u", f.Token, values); err != nil {
		t.Fatal(err)
	}
	if api.lastID != "a1" || api.callCount("update") != 1 {
		t.Fatalf("ожидался PATCH a1, вызовы = %v", api.calls)
	}

	body, err := json.Marshal(api.lastPatch)
	if err != nil {
		t.Fatal(err)
	}
	s := string(body)
	for _, fragment := range []string{`"follow_up_date":null`, `"company":"Acme"`, `"status":"interview"`, `"resume_id":null`} {
		if !strings.Contains(s, fragment) {
			t.Errorf("тело PATCH %s не содержит %s", s, fragment)
		}
	}
}

func TestFormController_CreateSendsNulls(t *testing.T) {
	api := &fakeAPI{}
	fc := newTestForms(api, &recordingInvalidator{})
	f := fc.OpenCreate("u")

	values := f.Values
	values.Company = "Acme"
	values.Role = "SWE"
	if _, _, err := fc.SubmitFull(context.Background(), "u", f.Token, values); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(api.lastDraft)
	if !strings.Contains(string(body), `"follow_up_date":null`) || !strings.Contains(string(body), `"date_applied":"2024-03-15"`) {
		t.Errorf("тело POST = %s", body)
	}
}

func TestFormController_FullValidation(t *testing.T) {
	base := FormValues{Company: "Acme", Role: "SWE", Status: "applied", DateApplied: "2024-01-01"}
	tests := []struct {
		name    string
		mutate  func(v *FormValues)
		wantKey string
	}{
		{name: "статус", mutate: func(v *FormValues) { v.Status = "hired" }, wantKey: "validation.status_invalid"},
		{name: "дата отклика пуста", mutate: func(v *FormValues) { v.DateApplied = "" }, wantKey: "validation.date_applied_required"},
		{name: "дата отклика некорректна", mutate: func(v *FormValues) { v.DateApplied = "01/02/2024" }, wantKey: "validation.date_invalid"},
		{name: "follow-up некорректен", mutate: func(v *FormValues) { v.FollowUpDate = "скоро" }, wantKey: "validation.date_invalid"},
		{name: "позиция пуста", mutate: func(v *FormValues) { v.Role = " " }, wantKey: "validation.role_required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			fc := newTestForms(api, &recordingInvalidator{})
			f := fc.OpenCreate("u")
			v := base
			tt.mutate(&v)

			_, _, err := fc.SubmitFull(context.Background(), "u", f.Token, v)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Key != tt.wantKey {
				t.Errorf("ожидался ключ %s, получено %v", tt.wantKey, err)
			}
			if api.totalCalls() != 0 {
				t.Error("запрос не должен выполняться")
			}
		})
	}
}

func TestFormController_WrongKindAndDiscard(t *testing.T) {
	fc := newTestForms(&fakeAPI{}, &recordingInvalidator{})
	quick := fc.OpenQuickAdd("u")
	full := fc.OpenCreate("u")
	other := fc.OpenQuickAdd("v")

	if _, _, err := fc.SubmitFull(context.Background(), "u", quick.Token, FormValues{}); !errors.Is(err, ErrFormNotFound) {
		t.Errorf("форма другого вида: %v", err)
	}

	fc.DiscardScope("u")
	if _, err := fc.Lookup("u", full.Token); !errors.Is(err, ErrFormNotFound) {
		t.Error("формы пользователя должны быть удалены")
	}
	if _, err := fc.Lookup("v", other.Token); err != nil {
		t.Error("формы другого пользователя должны остаться")
	}

	fc.Cancel("v", other.Token)
	if _, err := fc.Lookup("v", other.Token); !errors.Is(err, ErrFormNotFound) {
		t.Error("отменённая форма должна удаляться")
	}
}
