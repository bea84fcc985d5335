package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestContract_Check(t *testing.T) {
	contract, err := NewContract("http://api.test", testLogger())
	if err != nil {
		t.Fatalf("NewContract: %v", err)
	}

	tests := []struct {
		name    string
		method  string
		url     string
		status  int
		body    string
		wantErr bool
	}{
		{
			name:   "корректный список",
			method: http.MethodGet,
			url:    "http://api.test/applications/?status=offer",
			status: http.StatusOK,
			body:   `[{"id":"a1","company":"Acme","role":"SRE","status":"offer","date_applied":"2024-01-05"}]`,
		},
		{
			name:    "нет обязательного поля",
			method:  http.MethodGet,
			url:     "http://api.test/applications/a1",
			status:  http.StatusOK,
			body:    `{"company":"Acme","role":"SRE","status":"offer","date_applied":"2024-01-05"}`,
			wantErr: true,
		},
		{
			name:    "статус вне перечисления",
			method:  http.MethodGet,
			url:     "http://api.test/applications/a1",
			status:  http.StatusOK,
			body:    `{"id":"a1","company":"Acme","role":"SRE","status":"ghosted","date_applied":"2024-01-05"}`,
			wantErr: true,
		},
		{
			name:   "удаление без тела",
			method: http.MethodDelete,
			url:    "http://api.test/resumes/r1",
			status: http.StatusNoContent,
		},
		{
			name:    "неописанная операция",
			method:  http.MethodGet,
			url:     "http://api.test/unknown",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, http.NoBody)
			header := http.Header{}
			if tt.body != "" {
				header.Set("Content-Type", "application/json")
			}

			err := contract.Check(context.Background(), req, tt.status, header, []byte(tt.body))
			if tt.wantErr && err == nil {
				t.Error("ожидалось нарушение контракта")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("неожиданное нарушение контракта: %v", err)
			}
		})
	}
}

func TestClient_ContractViolationIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// нет обязательного pdf_url
		_, _ = w.Write([]byte(`[{"id":"r1","name":"SWE v3"}]`))
	}))
	t.Cleanup(server.Close)

	contract, err := NewContract(server.URL, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	client, err := New(Options{BaseURL: server.URL, Contract: contract}, mockTokenProvider("t"), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	resumes, err := client.ListResumes(context.Background())
	if err != nil {
		t.Fatalf("нарушение контракта не должно прерывать запрос: %v", err)
	}
	if len(resumes) != 1 {
		t.Errorf("len(resumes) = %d", len(resumes))
	}
}
