package api

import (
	"net/http"
	"runtime"

	"github.com/Togather-Foundation/agenda/internal/api/problem"
)

// BuildInfo carries the values injected via ldflags at build time.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

func (b BuildInfo) withDefaults() BuildInfo {
	if b.Version == "" {
		b.Version = "dev"
	}
	if b.GitCommit == "" {
		b.GitCommit = "unknown"
	}
	if b.BuildDate == "" {
		b.BuildDate = "unknown"
	}
	return b
}

type versionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// VersionHandler serves build metadata on GET /version.
func VersionHandler(info BuildInfo) http.Handler {
	info = info.withDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		problem.WriteBody(w, http.StatusOK, versionResponse{
			Version:   info.Version,
			GitCommit: info.GitCommit,
			BuildDate: info.BuildDate,
			GoVersion: runtime.Version(),
		})
	})
}

const (
	serviceName        = "agenda"
	serviceDescription = "API da agenda de eventos"
)

type statusResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// StatusHandler answers GET / with the service name and version. It only
// matches the exact root path; anything else falls through to 404.
func StatusHandler(info BuildInfo) http.Handler {
	info = info.withDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		problem.WriteBody(w, http.StatusOK, statusResponse{
			Name:        serviceName,
			Description: serviceDescription,
			Version:     info.Version,
		})
	})
}
