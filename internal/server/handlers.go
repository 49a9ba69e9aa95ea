package server

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// handleConfig returns the bootstrap document the gallery front-end reads
// before rendering anything. Values come from the mirrored settings row;
// sensible zero values are served before the first settings write.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings()
	if err != nil {
		s.logger.Error("read settings", "error", err)
		http.Error(w, "settings unavailable", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"ip":         "127.0.0.1",
		"serverPort": 0,
		"clientPort": 0,
		"theme":      "default",
		"color":      "",
		"autoSync":   false,
		"pwdFolder":  false,
		"trash":      false,
	}
	if settings != nil {
		resp["ip"] = settings.IP
		resp["serverPort"] = settings.ServerPort
		resp["clientPort"] = settings.ClientPort
		resp["theme"] = settings.Theme
		resp["color"] = settings.Color
		resp["autoSync"] = settings.AutoSync
		resp["pwdFolder"] = settings.PwdFolder
		resp["trash"] = settings.Trash
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFolders returns the folders the gallery may show, optionally scoped
// to one parent via ?pid=. Passwords never leave the server; the front-end
// only needs the tips to render an unlock prompt.
func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.VisibleFolders(r.URL.Query().Get("pid"))
	if err != nil {
		s.logger.Error("list visible folders", "error", err)
		http.Error(w, "folders unavailable", http.StatusInternalServerError)
		return
	}

	type folderResp struct {
		ID           string `json:"id"`
		PID          string `json:"pid,omitempty"`
		Name         string `json:"name"`
		Description  string `json:"description,omitempty"`
		PasswordTips string `json:"passwordTips,omitempty"`
		Count        int64  `json:"count"`
	}
	resp := make([]folderResp, 0, len(folders))
	for _, f := range folders {
		resp = append(resp, folderResp{
			ID:           f.ID,
			PID:          f.PID,
			Name:         f.Name,
			Description:  f.Description,
			PasswordTips: f.PasswordTips,
			Count:        f.Count,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTheme serves the theme bundle, falling back to 404.html so the
// front-end router can own unknown paths.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.themeDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		http.ServeFile(w, r, name)
		return
	}

	body, err := os.ReadFile(filepath.Join(s.themeDir, "404.html"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}

// eagleProxy forwards /eagle/* to the local Eagle application API, stripping
// the /eagle prefix.
func (s *Server) eagleProxy() (http.Handler, error) {
	target, err := url.Parse(s.eagleURL)
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		req.URL.Path = strings.TrimPrefix(req.URL.Path, "/eagle")
		director(req)
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("eagle proxy", "path", r.URL.Path, "error", err)
		http.Error(w, "eagle unavailable", http.StatusBadGateway)
	}
	return proxy, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
