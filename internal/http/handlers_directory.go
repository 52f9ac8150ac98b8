package http

import (
	"net/http"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching users")
		return
	}
	views := newUserViews(users)
	NewResponse().Count(len(views)).Data(views).Write(w)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		NotFoundError("User not found").Write(w)
		return
	}
	u, err := s.directory.GetUser(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching user")
		return
	}
	NewResponse().Data(newUserView(u)).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.directory.ListCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching categories")
		return
	}
	views := newCategoryViews(cats)
	NewResponse().Count(len(views)).Data(views).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		NotFoundError("Category not found").Write(w)
		return
	}
	c, err := s.directory.GetCategory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching category")
		return
	}
	NewResponse().Data(newCategoryView(c)).Write(w)
}
