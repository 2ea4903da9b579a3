package view

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/authn"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
)

func (v *View) translate(req *request.Request, err error) *response.Response {
	if v.exception != nil {
		if resp := v.exception(req, err); resp != nil {
			return resp
		}
	}
	return v.HandleException(req, err)
}

// HandleException maps a dispatch error to its response. This is the only
// place error responses are produced; both the sync and suspending paths
// land here, so equivalent failures render identically.
func (v *View) HandleException(req *request.Request, err error) *response.Response {
	var ve *restflow.ValidationError
	if errors.As(err, &ve) {
		return response.New(http.StatusBadRequest, ve.Detail())
	}

	var ae *restflow.AuthenticationError
	if errors.As(err, &ae) {
		msg := clientMessage(ae, restflow.ErrNotAuthenticated,
			"Authentication credentials were not provided.")
		resp := response.New(http.StatusUnauthorized, detail(msg))
		if ch := v.challenge(ae); ch != "" {
			resp.Header("WWW-Authenticate", ch)
		}
		return resp
	}

	var pe *restflow.PermissionError
	if errors.As(err, &pe) {
		msg := clientMessage(pe, restflow.ErrPermissionDenied,
			"You do not have permission to perform this action.")
		return response.New(http.StatusForbidden, detail(msg))
	}

	if restflow.IsNotFound(err) {
		return response.New(http.StatusNotFound, detail("Not found."))
	}

	var me *restflow.MethodNotAllowedError
	if errors.As(err, &me) {
		msg := fmt.Sprintf("Method %q not allowed.", me.Method)
		resp := response.New(http.StatusMethodNotAllowed, detail(msg))
		return resp.Header("Allow", strings.Join(v.Methods(), ", "))
	}

	var te *restflow.ThrottledError
	if errors.As(err, &te) {
		throttledTotal.WithLabelValues(v.name).Inc()
		secs := int(math.Ceil(te.Wait.Seconds()))
		msg := "Request was throttled."
		if te.Wait > 0 {
			msg = fmt.Sprintf("Request was throttled. Expected available in %d seconds.", secs)
		}
		resp := response.New(http.StatusTooManyRequests, detail(msg))
		return resp.Header("Retry-After", strconv.Itoa(secs))
	}

	v.logger.Error().Err(err).
		Str("view", v.name).
		Str("method", req.Method()).
		Str("path", req.Raw.URL.Path).
		Str("request_id", req.ID).
		Msg("unhandled dispatch error")
	return response.New(http.StatusInternalServerError, detail("A server error occurred."))
}

// challenge picks the WWW-Authenticate value: the failing scheme when the
// error names one, otherwise the first challenging authenticator.
func (v *View) challenge(ae *restflow.AuthenticationError) string {
	if ae.Scheme != "" {
		return ae.Scheme
	}
	for _, a := range v.authenticators {
		if c, ok := a.(authn.Challenger); ok {
			return c.Challenge()
		}
	}
	return ""
}

// clientMessage turns an internal error string into the client-facing
// detail: the custom message with the package prefix stripped, or the
// canonical fallback when none was set.
func clientMessage(err, sentinel error, fallback string) string {
	if err.Error() == sentinel.Error() {
		return fallback
	}
	return strings.TrimPrefix(err.Error(), "restflow: ")
}

func detail(msg string) map[string]any {
	return map[string]any{"detail": msg}
}
