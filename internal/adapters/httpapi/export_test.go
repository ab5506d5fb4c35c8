package httpapi

import "net/http"

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.handleHealth(w, r)
}

func (s *Server) HandleAnalyzeRaw(w http.ResponseWriter, r *http.Request) {
	s.handleAnalyzeRaw(w, r)
}

func (s *Server) HandleAnalyzeJSON(w http.ResponseWriter, r *http.Request) {
	s.handleAnalyzeJSON(w, r)
}
