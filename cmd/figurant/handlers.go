package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/figurant/audit"
	"github.com/hazyhaar/figurant/blobstore"
	"github.com/hazyhaar/figurant/docfetch"
	"github.com/hazyhaar/figurant/horosafe"
	"github.com/hazyhaar/figurant/idgen"
	"github.com/hazyhaar/figurant/kit"
	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona"
	"github.com/hazyhaar/figurant/sheetbridge"
	"github.com/hazyhaar/figurant/shield"
)

// storagePort appends generated personas to the storage sheet.
// *sheetbridge.Bridge satisfies it; tests use fakes.
type storagePort interface {
	AppendPersonas(ctx context.Context, spreadsheetID string, personas []persona.Persona) error
}

// app holds the wired collaborators behind the HTTP surface.
type app struct {
	svc   *persona.Service
	docs  *docfetch.Fetcher
	blobs *blobstore.Store
	trail *audit.SQLiteLogger

	storage        storagePort
	storageSheetID string

	newSessionID idgen.Generator
}

func newApp(svc *persona.Service) *app {
	return &app{
		svc:          svc,
		newSessionID: idgen.Prefixed("ses_", idgen.Default),
	}
}

// audited wraps an endpoint with the audit trail when one is configured.
func (a *app) audited(action string, ep kit.Endpoint) kit.Endpoint {
	if a.trail == nil {
		return ep
	}
	return audit.Middleware(a.trail, action)(ep)
}

func (a *app) routes(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{
			"status":              "ok",
			"model_configured":    a.svc.Configured(),
			"research_configured": a.svc.ResearchConfigured(),
			"sheets_wired":        a.storage != nil,
			"uploads_wired":       a.blobs != nil,
		})
	})

	r.Post("/generate", a.handleGenerate)
	r.Post("/upload", a.handleUpload)
	r.Post("/chat", a.handleChat)
}

// generateRequest is the /generate body, form-encoded or JSON.
type generateRequest struct {
	Matter            string `json:"matter"`
	Keywords          string `json:"keywords"`
	TargetDescription string `json:"target_description"`
	PersonaCount      int    `json:"persona_count"`

	// SheetURL selects enrichment mode when present.
	SheetURL string `json:"julius_personas_sheet_url"`

	ComplaintFileURL string `json:"complaint_file_url"`
	ResearchFileURL  string `json:"research_file_url"`
}

func (g *generateRequest) campaign() persona.CampaignContext {
	return persona.CampaignContext{
		Matter:            g.Matter,
		Keywords:          g.Keywords,
		TargetDescription: g.TargetDescription,
	}
}

func decodeGenerateRequest(r *http.Request) (*generateRequest, error) {
	var req generateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return &req, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	req.Matter = r.FormValue("matter")
	req.Keywords = r.FormValue("keywords")
	req.TargetDescription = r.FormValue("target_description")
	req.SheetURL = r.FormValue("julius_personas_sheet_url")
	req.ComplaintFileURL = r.FormValue("complaint_file_url")
	req.ResearchFileURL = r.FormValue("research_file_url")
	if v := r.FormValue("persona_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("persona_count: %w", err)
		}
		req.PersonaCount = n
	}
	return &req, nil
}

// handleGenerate dispatches between generation mode and enrichment mode.
// A persona sheet URL in the request selects enrichment.
func (a *app) handleGenerate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	sessionID := a.newSessionID()
	ctx := kit.WithSessionID(r.Context(), sessionID)
	log := shield.GetLogger(ctx).With("session_id", sessionID)

	req, err := decodeGenerateRequest(r)
	if err != nil {
		a.writeFailure(w, sessionID, fmt.Errorf("%w: %s", persona.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Matter) == "" {
		a.writeFailure(w, sessionID, fmt.Errorf("%w: matter is required", persona.ErrInvalidInput))
		return
	}

	mode := "generation"
	if req.SheetURL != "" {
		mode = "enrichment"
	}
	log.Info("persona request", "mode", mode, "count", req.PersonaCount)

	uploaded := a.fetchUploads(ctx, req)

	endpoint := a.audited(mode+"_request", func(ctx context.Context, in any) (any, error) {
		q := in.(*generateRequest)
		if q.SheetURL != "" {
			return a.svc.EnrichSheet(ctx, q.SheetURL, q.campaign(), uploaded)
		}
		bundle := a.svc.Research(ctx, q.campaign())
		res, err := a.svc.GeneratePersonas(ctx, q.campaign(), uploaded, bundle, q.PersonaCount)
		if err != nil {
			return nil, err
		}
		a.storeGenerated(ctx, res.Personas)
		return res, nil
	})

	out, err := endpoint(ctx, req)
	if err != nil {
		a.writeFailure(w, sessionID, err)
		return
	}

	resp := map[string]any{
		"success":        true,
		"sessionId":      sessionID,
		"processingTime": time.Since(started).Round(time.Millisecond).String(),
	}
	switch res := out.(type) {
	case *persona.GenerationResult:
		resp["personas"] = res.Personas
		resp["dataAnalysis"] = map[string]any{
			"sources_used": res.SourcesUsed,
			"sufficiency":  res.Sufficiency,
			"validation":   res.Validation,
		}
	case *persona.EnrichSheetResult:
		resp["personas"] = res.Personas
		resp["sheetUrl"] = res.SheetURL
		resp["dataAnalysis"] = map[string]any{
			"validation": res.Validation,
		}
	}
	writeJSON(w, 200, resp)
}

// fetchUploads pulls the optional complaint/research documents. A failed
// fetch degrades to a warning; the request continues without it.
func (a *app) fetchUploads(ctx context.Context, req *generateRequest) []docfetch.Excerpt {
	var out []docfetch.Excerpt
	for _, doc := range []struct {
		url  string
		kind docfetch.Kind
	}{
		{req.ComplaintFileURL, docfetch.KindComplaint},
		{req.ResearchFileURL, docfetch.KindResearch},
	} {
		if doc.url == "" {
			continue
		}
		if a.docs == nil {
			shield.GetLogger(ctx).Warn("document fetch not configured, skipping", "url", doc.url)
			continue
		}
		ex, err := a.docs.FetchExcerpt(ctx, doc.url, doc.kind)
		if err != nil {
			shield.GetLogger(ctx).Warn("document fetch failed, continuing without it",
				"url", doc.url, "kind", doc.kind, "error", err)
			continue
		}
		out = append(out, *ex)
	}
	return out
}

// storeGenerated appends fresh personas to the storage sheet. Storage is
// best-effort: the generated batch is still returned on failure.
func (a *app) storeGenerated(ctx context.Context, personas []persona.Persona) {
	if a.storage == nil || a.storageSheetID == "" || len(personas) == 0 {
		return
	}
	if err := a.storage.AppendPersonas(ctx, a.storageSheetID, personas); err != nil {
		shield.GetLogger(ctx).Warn("storage append failed", "error", err)
	}
}

// handleUpload stores the first multipart file as a shareable blob.
func (a *app) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := a.newSessionID()
	ctx := kit.WithSessionID(r.Context(), sessionID)

	if a.blobs == nil {
		a.writeFailure(w, sessionID, errBlobsNotConfigured)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeFailure(w, sessionID, fmt.Errorf("%w: multipart field 'file' is required", persona.ErrInvalidInput))
		return
	}
	defer file.Close()

	obj, err := a.blobs.Put(ctx, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		a.writeFailure(w, sessionID, err)
		return
	}
	if a.trail != nil {
		a.trail.LogAsync(&audit.Entry{
			Action:    "upload",
			SessionID: sessionID,
			TraceID:   kit.GetTraceID(ctx),
			Result:    fmt.Sprintf(`{"filename":%q,"size":%d}`, obj.Filename, obj.Size),
		})
	}
	writeJSON(w, 200, obj)
}

// chatRequest is the /chat body. Either persona_name (with the roster
// sheet) or inline persona_attributes selects the speaker.
type chatRequest struct {
	PersonaName       string            `json:"persona_name"`
	SheetURL          string            `json:"julius_personas_sheet_url"`
	PersonaAttributes map[string]string `json:"persona_attributes"`
	Message           string            `json:"message"`
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := a.newSessionID()
	ctx := kit.WithSessionID(r.Context(), sessionID)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeFailure(w, sessionID, fmt.Errorf("%w: %s", persona.ErrInvalidInput, err))
		return
	}

	endpoint := a.audited("chat", func(ctx context.Context, in any) (any, error) {
		q := in.(*chatRequest)
		speaker, err := a.resolveSpeaker(ctx, q)
		if err != nil {
			return nil, err
		}
		return a.svc.Chat(ctx, speaker, q.Message)
	})

	out, err := endpoint(ctx, &req)
	if err != nil {
		a.writeFailure(w, sessionID, err)
		return
	}
	reply := out.(*persona.ChatReply)
	writeJSON(w, 200, map[string]any{
		"success":      true,
		"sessionId":    sessionID,
		"persona_name": reply.PersonaName,
		"reply":        reply.Reply,
		"replied_at":   reply.RepliedAt,
	})
}

// resolveSpeaker synthesizes a persona from inline attributes or looks
// the name up in the roster sheet.
func (a *app) resolveSpeaker(ctx context.Context, req *chatRequest) (*persona.Persona, error) {
	if len(req.PersonaAttributes) > 0 {
		return personaFromAttributes(req.PersonaAttributes)
	}
	if req.PersonaName == "" {
		return nil, fmt.Errorf("%w: persona_name or persona_attributes required", persona.ErrInvalidInput)
	}
	if req.SheetURL == "" {
		return nil, fmt.Errorf("%w: julius_personas_sheet_url required to look up %q", persona.ErrInvalidInput, req.PersonaName)
	}
	return a.svc.LookupPersona(ctx, req.SheetURL, req.PersonaName)
}

// personaFromAttributes builds an ad hoc persona for one-off chats.
func personaFromAttributes(attrs map[string]string) (*persona.Persona, error) {
	p := persona.Persona{Extra: map[string]string{}}
	for k, v := range attrs {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "name":
			p.Name = v
		case "age":
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				p.Age = n
			}
		case "location":
			p.Location = v
		case "occupation":
			p.Occupation = v
		case "bio":
			p.Bio = v
		case "communication_style":
			p.CommunicationStyle = v
		default:
			p.Extra[k] = v
		}
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: persona_attributes must include a name", persona.ErrInvalidInput)
	}
	return &p, nil
}

// --- Error envelope ---

var errBlobsNotConfigured = errors.New("blob storage not configured")

// writeFailure maps domain errors onto the error envelope with a status
// code, stable error code, and a troubleshooting checklist where one helps.
func (a *app) writeFailure(w http.ResponseWriter, sessionID string, err error) {
	status, code, hints := classifyError(err)
	body := map[string]any{
		"error":     code,
		"message":   err.Error(),
		"sessionId": sessionID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(hints) > 0 {
		body["troubleshooting"] = hints
	}
	writeJSON(w, status, body)
}

func classifyError(err error) (status int, code string, hints []string) {
	switch {
	case errors.Is(err, persona.ErrInvalidInput),
		errors.Is(err, sheetbridge.ErrInvalidSheetURL):
		return 400, "INVALID_INPUT", []string{
			"Check that matter, keywords, and target_description are present",
			"Sheet URLs must look like https://docs.google.com/spreadsheets/d/<id>",
		}
	case errors.Is(err, horosafe.ErrSSRF),
		errors.Is(err, horosafe.ErrUnsafeScheme),
		errors.Is(err, horosafe.ErrPathTraversal):
		return 400, "UNSAFE_URL", []string{
			"Document URLs must be public http(s) addresses",
		}
	case errors.Is(err, sheetbridge.ErrEmptySheet):
		return 422, "EMPTY_PERSONAS_SHEET", []string{
			"Share the sheet with the service account (Viewer is enough for import)",
			"The first row must be a header row; persona rows need a non-empty name",
		}
	case errors.Is(err, persona.ErrInsufficientData):
		return 422, "INSUFFICIENT_DATA", []string{
			"Provide a research API key, or attach complaint/research documents",
		}
	case errors.Is(err, persona.ErrNotFound):
		return 404, "PERSONA_NOT_FOUND", nil
	case errors.Is(err, llm.ErrNotConfigured):
		return 500, "MODEL_NOT_CONFIGURED", []string{
			"Set OPENAI_API_KEY or GEMINI_API_KEY and restart",
		}
	case errors.Is(err, persona.ErrSheetsNotConfigured), errors.Is(err, errBlobsNotConfigured):
		return 500, "GOOGLE_NOT_CONFIGURED", []string{
			"Set GOOGLE_APPLICATION_CREDENTIALS to a service-account key file",
		}
	default:
		return 500, "INTERNAL_ERROR", nil
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
