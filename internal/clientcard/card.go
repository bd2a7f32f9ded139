// Package clientcard renders a client's profile, goal history and sessions
// as a markdown document for export.
package clientcard

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carpenike/helix/internal/models"
)

// Session is a training session with its exercises.
type Session struct {
	*models.TrainingSession
	Exercises []*models.SessionExercise
}

// Data is everything the card shows. Goals and sessions are newest first.
type Data struct {
	Client   *models.Client
	Goals    []*models.GoalHistoryEntry
	Sessions []Session
}

// Options hides optional parts of the card. The zero value shows everything.
type Options struct {
	HideName           bool
	HideGymDescription bool
}

// Load reads the card data for a client.
func Load(ctx context.Context, db models.DBTX, client *models.Client) (*Data, error) {
	goals, err := models.ListGoalHistory(ctx, db, client.ID)
	if err != nil {
		return nil, fmt.Errorf("clientcard: load goals: %w", err)
	}
	sessions, err := models.ListSessions(ctx, db, client.ID)
	if err != nil {
		return nil, fmt.Errorf("clientcard: load sessions: %w", err)
	}
	d := &Data{Client: client, Goals: goals, Sessions: make([]Session, 0, len(sessions))}
	for _, s := range sessions {
		items, err := models.ListSessionExercises(ctx, db, s.ID)
		if err != nil {
			return nil, fmt.Errorf("clientcard: load exercises of session %d: %w", s.ID, err)
		}
		d.Sessions = append(d.Sessions, Session{TrainingSession: s, Exercises: items})
	}
	return d, nil
}

// Generate renders the card. now is used for the client's age.
func Generate(d *Data, opts Options, now time.Time) string {
	c := d.Client
	var b strings.Builder

	if !opts.HideName {
		fmt.Fprintf(&b, "# %s %s\n\n", c.FirstName, c.LastName)
	}

	b.WriteString("## Dati Anagrafici\n\n")
	if age, ok := c.DisplayAge(now); ok && age != 0 {
		fmt.Fprintf(&b, "- **Eta**: %d anni\n", age)
	}
	if c.BirthDate.Valid && c.BirthDate.String != "" {
		fmt.Fprintf(&b, "- **Data di nascita**: %s\n", formatDate(c.BirthDate.String))
	}
	switch c.Gender.String {
	case "male":
		b.WriteString("- **Genere**: Maschio\n")
	case "female":
		b.WriteString("- **Genere**: Femmina\n")
	}
	b.WriteString("\n")

	b.WriteString("## Anamnesi\n\n")
	if c.PhysicalNotes.String != "" {
		b.WriteString(c.PhysicalNotes.String + "\n\n")
	} else {
		b.WriteString("_Nessuna nota fisica registrata._\n\n")
	}

	b.WriteString("## Storia Obiettivi\n\n")
	if len(d.Goals) == 0 {
		b.WriteString("_Nessun obiettivo registrato._\n")
	}
	for i, g := range d.Goals {
		marker := ""
		if i == 0 {
			marker = "**[ATTUALE]** "
		}
		fmt.Fprintf(&b, "%d. %s%s _(dal %s)_\n", i+1, marker, g.Goal, g.StartedAt.Format("02/01/2006"))
	}
	b.WriteString("\n")

	b.WriteString("## Sessioni\n\n")
	if len(d.Sessions) == 0 {
		b.WriteString("_Nessuna sessione registrata._\n")
	}
	for _, s := range d.Sessions {
		writeSession(&b, s, opts)
	}

	return b.String()
}

func writeSession(b *strings.Builder, s Session, opts Options) {
	completed := s.Status == models.SessionCompleted
	status := "Pianificata"
	if completed {
		status = "Completata"
	}
	gym := "Nessuna palestra"
	if s.GymName.String != "" {
		gym = s.GymName.String
	}

	fmt.Fprintf(b, "### %s - %s\n\n", formatDate(s.SessionDate), status)
	fmt.Fprintf(b, "**Palestra**: %s\n", gym)
	if s.GymAddress.String != "" {
		fmt.Fprintf(b, "**Indirizzo**: %s\n", s.GymAddress.String)
	}
	if !opts.HideGymDescription && s.GymDescription.String != "" {
		fmt.Fprintf(b, "**Dettagli**: %s\n", s.GymDescription.String)
	}
	b.WriteString("\n")

	if len(s.Exercises) == 0 {
		b.WriteString("_Nessun esercizio in questa sessione._\n\n")
		return
	}

	items := make([]*models.SessionExercise, len(s.Exercises))
	copy(items, s.Exercises)
	sort.SliceStable(items, func(i, j int) bool { return items[i].OrderIndex < items[j].OrderIndex })

	for i, ex := range items {
		icon := ""
		if completed {
			icon = "✓ "
			if ex.Skipped {
				icon = "X "
			}
		}
		name := ex.ExerciseName
		if name == "" {
			name = "Esercizio sconosciuto"
		}
		fmt.Fprintf(b, "%d. %s%s%s\n", i+1, icon, name, details(ex))
		if ex.Notes.String != "" {
			fmt.Fprintf(b, "   - _%s_\n", ex.Notes.String)
		}
	}
	b.WriteString("\n")
}

// details renders " - 3 serie, 10 reps, 20 kg, 1m 30s" with zero values left out.
func details(ex *models.SessionExercise) string {
	var parts []string
	if ex.Sets.Int64 != 0 {
		parts = append(parts, fmt.Sprintf("%d serie", ex.Sets.Int64))
	}
	if ex.Reps.Int64 != 0 {
		parts = append(parts, fmt.Sprintf("%d reps", ex.Reps.Int64))
	}
	if ex.WeightKg.Float64 != 0 {
		parts = append(parts, strconv.FormatFloat(ex.WeightKg.Float64, 'f', -1, 64)+" kg")
	}
	if d := ex.DurationSeconds.Int64; d != 0 {
		if mins := d / 60; mins > 0 {
			parts = append(parts, fmt.Sprintf("%dm %ds", mins, d%60))
		} else {
			parts = append(parts, fmt.Sprintf("%ds", d))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " - " + strings.Join(parts, ", ")
}

// formatDate turns an ISO date into dd/mm/yyyy. Unparsable input is
// returned as is.
func formatDate(s string) string {
	if len(s) >= 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}
