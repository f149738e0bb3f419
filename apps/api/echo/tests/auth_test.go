package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/infast/crm/apps/api/echo"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	authFailed := marshalObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "missing credentials", body: marshalObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "wrong password", body: marshalObj(t, LoginRequest{Username: operatorName, Password: "nope"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "unknown operator", body: marshalObj(t, LoginRequest{Username: "root", Password: operatorPassword}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name: "username is case insensitive", body: marshalObj(t, LoginRequest{Username: " ADMIN ", Password: operatorPassword}),
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func Test_authApi_protected(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "no token", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "bad token", path: "/v1/dashboard", token: "not.a.jwt", wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "valid token", path: "/v1/courses", token: app.token, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "refresh", method: http.MethodPost, path: "/v1/auth/token-refresh", token: app.token, wantCode: http.StatusOK},
		{name: "refresh without token", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
