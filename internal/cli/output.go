package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// describeError renders application errors the way the API reports them.
func describeError(err error) string {
	if errors.Is(err, errAborted) {
		return err.Error()
	}

	res := apierr.New(err)
	if res.Code == apierr.InternalServerErr.Code {
		return err.Error()
	}

	msg := fmt.Sprintf("%s: %s", res.Code, res.Message)
	if res.Details != nil {
		for _, d := range *res.Details {
			msg += fmt.Sprintf("\n  %s: %s", d.Field, d.Message)
		}
	}
	return msg
}
