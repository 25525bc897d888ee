/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built rosters that populate the engine with realistic
	data for testing and demos. Each scenario replaces the roster and the
	invoice settings, then waits for the resulting recompute pass, so the
	summary is ready the moment the load call returns.

AVAILABLE SCENARIOS:

	community-club:     Small community club, mixed join years
	university-chapter: University chapter heavy on mid-year joiners
	departures:         Roster with many leave dates
	large-roster:       ~1200 generated members, exercises chunking and
	                    cache eviction

HOW SCENARIOS WORK:
 1. Build the member list and settings
 2. Replace the engine roster and settings (both trigger recompute)
 3. Wait for the pass to commit
 4. Record the loaded scenario for the UI

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "community-club"}

ADDING NEW SCENARIOS:
 1. Add to the 'scenarios' slice with ID, name, description
 2. Create a builder: xxxScenario() ([]dues.Member, dues.InvoiceContext)
 3. Add a case to LoadScenario

SEE ALSO:
  - handlers.go: shared write helpers
  - engine.Engine.ReplaceRoster: snapshot-style roster replacement
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubdesk/dues-engine/dues"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "community-club",
		Name:        "Community Club",
		Description: "Small community club with long-standing members and two catch-up joiners",
		Members:     8,
	},
	{
		ID:          "university-chapter",
		Name:        "University Chapter",
		Description: "University chapter where most members joined mid-year before the invoice year",
		Members:     10,
	},
	{
		ID:          "departures",
		Name:        "Departures",
		Description: "Roster heavy with leave dates: catch-up-only and inactive members",
		Members:     9,
	},
	{
		ID:          "large-roster",
		Name:        "Large Roster",
		Description: "Generated ~1200-member roster exercising chunked recompute and cache eviction",
		Members:     1200,
	},
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the roster and settings with a demo scenario
// and waits for the pass to commit.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var (
		members []dues.Member
		inv     dues.InvoiceContext
	)
	switch req.ScenarioID {
	case "community-club":
		members, inv = communityClubScenario()
	case "university-chapter":
		members, inv = universityChapterScenario()
	case "departures":
		members, inv = departuresScenario()
	case "large-roster":
		members, inv = largeRosterScenario()
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}

	if err := h.Engine.ReplaceRoster(members); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario roster", err)
		return
	}
	if err := h.Engine.SetSettings(inv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario settings", err)
		return
	}
	if err := h.waitForPass(r); err != nil {
		writeError(w, http.StatusInternalServerError, "Scenario recompute did not complete", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.Info().Str("scenario", req.ScenarioID).Int("members", len(members)).Msg("scenario loaded")

	res, _ := h.Engine.Committed()
	writeJSON(w, http.StatusOK, toSummaryDTO(res, h.Engine.Settings()))
}

// ResetAll clears the roster, the stored snapshot, the calculation
// cache, and the loaded scenario marker.
func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.ReplaceRoster(nil); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear roster", err)
		return
	}
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear stored snapshot", err)
		return
	}
	h.Engine.Cache().Reset()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func member(name string, tier dues.Tier, join dues.Date, leave *dues.Date) dues.Member {
	return dues.Member{
		ID:        dues.MemberID(uuid.NewString()),
		Name:      name,
		Tier:      tier,
		JoinDate:  join,
		LeaveDate: leave,
	}
}

func on(y int, m time.Month, d int) dues.Date {
	return dues.NewDate(y, m, d)
}

func until(y int, m time.Month, d int) *dues.Date {
	dt := dues.NewDate(y, m, d)
	return &dt
}

func settings(year int, taxPct, rate string) dues.InvoiceContext {
	return dues.InvoiceContext{
		InvoiceYear:  year,
		TaxPercent:   decimal.RequireFromString(taxPct),
		CurrencyRate: decimal.RequireFromString(rate),
	}
}

func communityClubScenario() ([]dues.Member, dues.InvoiceContext) {
	return []dues.Member{
		member("Greta Obermann", dues.TierCommunityBased, on(2018, time.April, 1), nil),
		member("Jonas Feld", dues.TierCommunityBased, on(2019, time.September, 12), nil),
		member("Helen Brandt", dues.TierCommunityBased, on(2021, time.January, 1), nil),
		member("Milo Schuster", dues.TierCommunityBased, on(2024, time.January, 1), nil),
		member("Ava Keller", dues.TierCommunityBased, on(2024, time.June, 15), nil),
		member("Tim Rosner", dues.TierUniversityBased, on(2022, time.October, 3), nil),
		member("Clara Voss", dues.TierCommunityBased, on(2025, time.March, 1), nil),
		member("Nils Ahrens", dues.TierCommunityBased, on(2020, time.February, 20), nil),
	}, settings(2025, "7.7", "0.94")
}

func universityChapterScenario() ([]dues.Member, dues.InvoiceContext) {
	members := []dues.Member{
		member("Chapter Lead", dues.TierUniversityBased, on(2021, time.September, 1), nil),
	}
	// Nine joiners spread across the year before the invoice year, most
	// of them mid-month so the following-month rule shows up.
	for i := 0; i < 9; i++ {
		join := on(2024, time.Month(1+i), 1+i*3)
		members = append(members, member(
			fmt.Sprintf("Student %02d", i+1),
			dues.TierUniversityBased, join, nil,
		))
	}
	return members, settings(2025, "0", "1.0")
}

func departuresScenario() ([]dues.Member, dues.InvoiceContext) {
	return []dues.Member{
		member("Founding Member", dues.TierCommunityBased, on(2015, time.March, 1), nil),
		member("Left Long Ago", dues.TierCommunityBased, on(2016, time.May, 1), until(2022, time.December, 31)),
		member("Left Last Year", dues.TierCommunityBased, on(2019, time.June, 1), until(2024, time.May, 1)),
		member("Joined And Left", dues.TierCommunityBased, on(2024, time.March, 1), until(2024, time.May, 1)),
		member("One Month Stay", dues.TierUniversityBased, on(2024, time.July, 1), until(2024, time.July, 20)),
		member("Leaving This Year", dues.TierCommunityBased, on(2020, time.January, 15), until(2025, time.August, 1)),
		member("Brief Overlap", dues.TierUniversityBased, on(2024, time.November, 15), until(2024, time.November, 20)),
		member("Still Active", dues.TierUniversityBased, on(2023, time.February, 1), nil),
		member("Catch-Up Joiner", dues.TierCommunityBased, on(2024, time.September, 5), nil),
	}, settings(2025, "7.7", "0.94")
}

// largeRosterScenario generates ~1200 members with varied join years,
// months, days, tiers and occasional departures. The variety produces
// more distinct input tuples than the default cache capacity, so
// loading it also exercises FIFO eviction.
func largeRosterScenario() ([]dues.Member, dues.InvoiceContext) {
	const size = 1200
	members := make([]dues.Member, 0, size)
	for i := 0; i < size; i++ {
		tier := dues.TierCommunityBased
		if i%3 == 0 {
			tier = dues.TierUniversityBased
		}
		joinYear := 2015 + i%11 // 2015..2025
		join := on(joinYear, time.Month(1+i%12), 1+i%28)

		var leave *dues.Date
		switch {
		case i%17 == 0 && joinYear < 2024:
			leave = until(joinYear+1, time.Month(1+(i/17)%12), 15)
		case i%23 == 0 && joinYear == 2024:
			leaveMonth := time.Month(1 + (int(join.Month)-1+(i/23)%3)%12)
			if leaveMonth >= join.Month {
				leave = until(2024, leaveMonth, 28)
			}
		}

		members = append(members, member(
			fmt.Sprintf("Member %04d", i+1), tier, join, leave,
		))
	}
	return members, settings(2025, "8.1", "1.08")
}
