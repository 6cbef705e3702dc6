// Package httpx holds small net/http helpers shared by middleware and handlers.
package httpx

import "net/http"

// StatusWriter records the status code and byte count written through it.
type StatusWriter struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

func (w *StatusWriter) WriteHeader(code int) {
	if w.Status == 0 {
		w.Status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusWriter) Write(p []byte) (int, error) {
	if w.Status == 0 {
		w.Status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.Bytes += n
	return n, err
}

// Code is the status sent, defaulting to 200 when the handler wrote nothing.
func (w *StatusWriter) Code() int {
	if w.Status == 0 {
		return http.StatusOK
	}
	return w.Status
}

func (w *StatusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
