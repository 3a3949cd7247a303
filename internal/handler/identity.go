package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
)

// HeaderUserID carries the authenticated customer id.
const HeaderUserID = "X-User-ID"

var errNoUser = errors.New("missing " + HeaderUserID + " header")

// optionalUser returns the caller's user id, or nil for an anonymous caller.
func optionalUser(r *http.Request) (*int64, error) {
	raw := r.Header.Get(HeaderUserID)
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw)
	if err != nil {
		return nil, errors.Wrap(err, HeaderUserID)
	}
	return &id, nil
}

// requireUser writes 401 or 400 and returns false when the caller has no
// valid user id.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := optionalUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return 0, false
	}
	if id == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, errNoUser.Error())
		return 0, false
	}
	return *id, true
}

// pathID parses the {id} URL parameter, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse id %q", s)
	}
	if id <= 0 {
		return 0, errors.Errorf("id %d must be positive", id)
	}
	return id, nil
}
