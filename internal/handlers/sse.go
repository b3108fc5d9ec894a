package handlers

import (
	"context"
	"fmt"
	"net/http"

	"flowmind/internal/contextutil"
)

// wantsStream reports whether the client asked for Server-Sent Events.
func wantsStream(r *http.Request) bool {
	return r.URL.Query().Get("stream") == "true"
}

// streamSSE runs a generation function and relays its chunks to the client as
// Server-Sent Events, terminated by a [DONE] marker. Errors raised before the
// first chunk still surface as an SSE error line because headers have already
// been written.
func streamSSE(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, callback func(chunk string) error) error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := run(ctx, func(chunk string) error {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		logger.ErrorContext(ctx, "error streaming response", "error", err)
		_, _ = fmt.Fprintf(w, "data: {\"error\":%q}\n\n", err.Error())
		flusher.Flush()
		return
	}

	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// collectResponse runs a generation function, buffering the streamed chunks
// into a single response string.
func collectResponse(ctx context.Context, run func(ctx context.Context, callback func(chunk string) error) error) (string, error) {
	var response []byte
	err := run(ctx, func(chunk string) error {
		response = append(response, chunk...)
		return nil
	})
	return string(response), err
}
