package web

import "net/http"

func StaticHandler(tpl Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tpl.Execute(w, r, nil)
	}
}

// NotFound renders tpl with a 404 status.
func NotFound(tpl Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		tpl.Execute(w, r, struct{ Title string }{Title: "Not found"})
	}
}
