package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tradevault/identity/pkg/apperr"
)

// maxBodyBytes caps request bodies; every payload here is small.
const maxBodyBytes = 1 << 16

var validate = validator.New()

// decodeJSON decodes and validates a request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		return apperr.ValidationFields("invalid request payload", fields)
	}
	return nil
}

// clientIP extracts the caller's IP, preferring the forwarding header set by
// the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceInfo describes the caller's client for session records.
func deviceInfo(r *http.Request) string {
	return r.UserAgent()
}
