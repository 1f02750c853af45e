package rest

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrijs2005/quickmart/internal/common"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = common.BadRequest("malformed_body", "Malformed request body")

// formField binds a form key to a destination string.
type formField struct {
	key    string
	target *string
}

// decode fills dst from a JSON body, or fields from a urlencoded or
// multipart form. When several keys share a target, the first one present
// in fields wins.
func decode(w http.ResponseWriter, r *http.Request, dst any, fields []formField) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if ct == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
				return errMalformedBody.WithCause(err)
			}
		} else if err := r.ParseForm(); err != nil {
			return errMalformedBody.WithCause(err)
		}
		for _, f := range fields {
			if v := r.PostFormValue(f.key); v != "" && *f.target == "" {
				*f.target = v
			}
		}
		return nil
	default:
		if r.Body == nil || r.Body == http.NoBody {
			return nil
		}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errMalformedBody.WithCause(err)
		}
		return nil
	}
}
