package web

import (
	"errors"
	"net/http"

	"sportsmed/internal/adapters/http/middleware"
	"sportsmed/internal/application/listutil"
	"sportsmed/internal/application/projections"
	"sportsmed/internal/domain/account"
)

var toastApprovalPending = &Toast{
	Title:       "Awaiting approval",
	Description: "Your staff account must be approved before you can view athletes' shared data.",
	Error:       true,
}

// handleAthletes lists athletes for approved staff; everyone else sees how sharing works (GET /athletes)
func handleAthletes(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())

	rows, err := projections.QueryAthleteList(r.Context(), projections.AthleteListQuery{ViewerID: sess.AccountID},
		projections.AthleteListDeps{AccountStore: stores.AccountStore, ConsentStore: stores.ConsentStore})
	if errors.Is(err, projections.ErrStaffOnly) || errors.Is(err, projections.ErrStaffApprovalPending) {
		info, perr := site.Page("athletes-info")
		if perr != nil {
			internalError(w, perr)
			return
		}
		data := map[string]any{"Title": "Athletes", "Page": info}
		if errors.Is(err, projections.ErrStaffApprovalPending) {
			data["Toast"] = toastApprovalPending
		}
		renderTemplate(w, r, "static.html", data)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	params := listutil.Parse(r.URL.Query(), projections.AthleteListSpec)
	page := projections.PageAthletes(rows, params)
	renderTemplate(w, r, "athletes.html", map[string]any{
		"Title":      "Athletes",
		"Athletes":   page.Rows,
		"Registered": len(rows),
		"List":       page,
		"PageLinks":  pageLinks("/athletes", page.Params, page.Page),
	})
}

// pageLink is one numbered pagination control.
type pageLink struct {
	Number  int
	URL     string
	Current bool
}

func pageLinks(base string, p listutil.Params, info listutil.PageInfo) []pageLink {
	if !info.ShowPagination() {
		return nil
	}
	var links []pageLink
	for _, n := range info.PageNumbers() {
		u := base
		if q := p.Query(n).Encode(); q != "" {
			u += "?" + q
		}
		links = append(links, pageLink{Number: n, URL: u, Current: n == info.Page})
	}
	return links
}

// handleAthleteDashboard renders one athlete's dashboard for staff (GET /athletes/{id})
// PRE: Viewer is approved staff
// POST: 403 unless the athlete shares an active consent; 404 for an unknown athlete
func handleAthleteDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	id := r.PathValue("id")

	view, err := projections.QueryAthleteDashboard(r.Context(), projections.AthleteDashboardQuery{
		ViewerID:  sess.AccountID,
		AthleteID: id,
		Range:     r.URL.Query().Get("range"),
	}, projections.AthleteDashboardDeps{
		AccountStore:   stores.AccountStore,
		ConsentStore:   stores.ConsentStore,
		BiometricStore: stores.BiometricStore,
	})
	switch {
	case errors.Is(err, projections.ErrStaffApprovalPending):
		http.Error(w, "Your staff account is awaiting approval.", http.StatusForbidden)
		return
	case errors.Is(err, projections.ErrStaffOnly), errors.Is(err, projections.ErrNotShared):
		http.Error(w, "This athlete has not shared their health data with medical staff.", http.StatusForbidden)
		return
	case errors.Is(err, account.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		internalError(w, err)
		return
	}

	data := map[string]any{
		"Title":      view.AthleteName,
		"Dashboard":  view.Dashboard,
		"Athlete":    view,
		"DetailBase": "/athletes/" + view.AthleteID,
	}
	if view.Dashboard.FetchFailed {
		data["Toast"] = toastFetchFailed
	}
	renderTemplate(w, r, "biometrics.html", data)
}
