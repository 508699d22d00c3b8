package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "mail-password-proxy/pkg/common/errors"
	"mail-password-proxy/pkg/core/audit"
	auditmodel "mail-password-proxy/pkg/core/audit/model"
	"mail-password-proxy/pkg/core/password/model"
)

const validBody = `{"username":"box@firstmail.ltd","cpassword":"old","npassword":"new","api_key":"key-123"}`

type fakeForwarder struct {
	got    *model.ChangeRequest
	result *model.Result
	err    error
}

func (f *fakeForwarder) Forward(_ context.Context, req model.ChangeRequest) (*model.Result, error) {
	f.got = &req
	return f.result, f.err
}

type fakeSink struct{ entries []audit.Entry }

func (f *fakeSink) Record(_ context.Context, e audit.Entry) { f.entries = append(f.entries, e) }

type observation struct {
	outcome string
	status  int
}

type fakeObserver struct{ seen []observation }

func (f *fakeObserver) ObserveRequest(outcome string, status int, _ time.Duration) {
	f.seen = append(f.seen, observation{outcome, status})
}

func jsonMeta() RequestMeta {
	return RequestMeta{ContentType: "application/json", ClientIP: "10.0.0.1"}
}

func TestChangePasswordForwards(t *testing.T) {
	fwd := &fakeForwarder{result: &model.Result{StatusCode: http.StatusOK, Body: []byte(`{"ok":true}`)}}
	sink := &fakeSink{}
	obs := &fakeObserver{}
	svc := NewProxyService(fwd, WithAuditSink(sink), WithObserver(obs))

	res, err := svc.ChangePassword(context.Background(), jsonMeta(), []byte(validBody))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(res.Body))
	require.NotNil(t, fwd.got)
	assert.Equal(t, model.ChangeRequest{
		Username:        "box@firstmail.ltd",
		CurrentPassword: "old",
		NewPassword:     "new",
		APIKey:          "key-123",
	}, *fwd.got)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, auditmodel.OutcomeRelayed, sink.entries[0].Outcome)
	assert.Equal(t, http.StatusOK, sink.entries[0].UpstreamStatus)
	assert.Equal(t, "10.0.0.1", sink.entries[0].ClientIP)
	assert.Equal(t, []observation{{auditmodel.OutcomeRelayed, http.StatusOK}}, obs.seen)
}

func TestChangePasswordRelaysUpstreamFailureStatus(t *testing.T) {
	fwd := &fakeForwarder{result: &model.Result{StatusCode: http.StatusUnauthorized, Body: []byte(`{"error":"bad key"}`)}}

	res, err := NewProxyService(fwd).ChangePassword(context.Background(), jsonMeta(), []byte(validBody))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestChangePasswordCharsetContentType(t *testing.T) {
	fwd := &fakeForwarder{result: &model.Result{StatusCode: http.StatusOK, Body: []byte(`{}`)}}
	meta := RequestMeta{ContentType: "application/json; charset=utf-8"}

	_, err := NewProxyService(fwd).ChangePassword(context.Background(), meta, []byte(validBody))
	assert.NoError(t, err)
}

func TestChangePasswordMissingContentTypeAccepted(t *testing.T) {
	fwd := &fakeForwarder{result: &model.Result{StatusCode: http.StatusOK, Body: []byte(`{}`)}}

	_, err := NewProxyService(fwd).ChangePassword(context.Background(), RequestMeta{}, []byte(validBody))
	assert.NoError(t, err)
}

func TestChangePasswordRejections(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		status      int
		outcome     string
		want        error
	}{
		{"empty body", "application/json", "", http.StatusBadRequest, auditmodel.OutcomeRejected, errs.ErrMissingBody},
		{"blank body", "application/json", "  \n", http.StatusBadRequest, auditmodel.OutcomeRejected, errs.ErrMissingBody},
		{"missing api key", "application/json", `{"username":"u","cpassword":"a","npassword":"b"}`, http.StatusBadRequest, auditmodel.OutcomeRejected, errs.ErrMissingFields},
		{"empty username", "application/json", `{"username":"","cpassword":"a","npassword":"b","api_key":"k"}`, http.StatusBadRequest, auditmodel.OutcomeRejected, errs.ErrMissingFields},
		{"null body", "application/json", `null`, http.StatusBadRequest, auditmodel.OutcomeRejected, errs.ErrMissingFields},
		{"broken json", "application/json", `{"username":`, http.StatusInternalServerError, auditmodel.OutcomeFailed, nil},
		{"wrong field type", "application/json", `{"username":5,"cpassword":"a","npassword":"b","api_key":"k"}`, http.StatusInternalServerError, auditmodel.OutcomeFailed, nil},
		{"form content type", "application/x-www-form-urlencoded", validBody, http.StatusInternalServerError, auditmodel.OutcomeFailed, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fwd := &fakeForwarder{}
			sink := &fakeSink{}
			svc := NewProxyService(fwd, WithAuditSink(sink))

			res, err := svc.ChangePassword(context.Background(), RequestMeta{ContentType: tc.contentType}, []byte(tc.body))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Nil(t, fwd.got, "upstream must not be called")
			assert.Equal(t, tc.status, errs.StatusCode(err))
			if tc.want != nil {
				assert.Same(t, tc.want, err)
			}

			require.Len(t, sink.entries, 1)
			assert.Equal(t, tc.outcome, sink.entries[0].Outcome)
			assert.Zero(t, sink.entries[0].UpstreamStatus)
		})
	}
}

func TestChangePasswordUpstreamUnreachable(t *testing.T) {
	fwd := &fakeForwarder{err: errors.New("dial tcp 1.2.3.4:443: i/o timeout")}
	obs := &fakeObserver{}

	_, err := NewProxyService(fwd, WithObserver(obs)).ChangePassword(context.Background(), jsonMeta(), []byte(validBody))
	require.Error(t, err)

	status, body := errs.Render(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body["error"], "Internal proxy error: proxy failed to reach target API")
	assert.Contains(t, body["error"], "i/o timeout")
	assert.Equal(t, []observation{{auditmodel.OutcomeFailed, http.StatusInternalServerError}}, obs.seen)
}
