package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPromptExercises caps how many catalog names go into the prompt.
const MaxPromptExercises = 50

// BuildSystemPrompt renders the system message for a planning conversation.
// It is a pure function of its inputs.
func BuildSystemPrompt(cc *ClientContext, exercises, gyms []string) string {
	if cc == nil {
		cc = &ClientContext{}
	}

	gymList := strings.Join(gyms, ", ")
	if gymList == "" {
		gymList = "Nessuna palestra registrata"
	}
	if len(exercises) > MaxPromptExercises {
		exercises = exercises[:MaxPromptExercises]
	}
	exerciseList := strings.Join(exercises, ", ")

	recent := "Nessuna sessione precedente"
	if len(cc.RecentSessions) > 0 {
		lines := make([]string, 0, len(cc.RecentSessions))
		for i, s := range cc.RecentSessions {
			lines = append(lines, sessionDigest(i+1, s))
		}
		recent = strings.Join(lines, "\n")
	}

	age := "non specificata"
	if cc.Age != nil && *cc.Age > 0 {
		age = fmt.Sprintf("%d anni", *cc.Age)
	}

	var b strings.Builder
	b.WriteString("Sei un assistente esperto per personal trainer e istruttori di pilates. ")
	b.WriteString("Aiuti i coach a pianificare sessioni di allenamento per i loro clienti.\n\n")

	b.WriteString("CLIENTE ATTUALE:\n")
	fmt.Fprintf(&b, "- Nome: %s %s\n", cc.FirstName, cc.LastName)
	fmt.Fprintf(&b, "- Età: %s\n", age)
	fmt.Fprintf(&b, "- Note fisiche: %s\n", orDefault(cc.PhysicalNotes, "nessuna"))
	fmt.Fprintf(&b, "- Obiettivo attuale: %s\n\n", orDefault(cc.CurrentGoal, "non specificato"))

	fmt.Fprintf(&b, "SESSIONI RECENTI:\n%s\n\n", recent)
	fmt.Fprintf(&b, "PALESTRE DISPONIBILI:\n%s\n\n", gymList)
	fmt.Fprintf(&b, "ESERCIZI DISPONIBILI (esempi):\n%s\n\n", exerciseList)

	b.WriteString(instructions)
	return b.String()
}

const instructions = "ISTRUZIONI:\n" +
	"1. Rispondi sempre in italiano\n" +
	"2. Quando proponi un piano di allenamento, descrivi prima gli esercizi in modo conversazionale\n" +
	"3. Quando il coach conferma il piano, rispondi con un blocco JSON strutturato nel formato:\n" +
	"```" + PlanFenceTag + "\n" +
	`{
  "gym_name": "nome palestra o null",
  "session_date": "YYYY-MM-DD",
  "exercises": [
    {
      "exercise_name": "Nome Esercizio",
      "sets": 3,
      "reps": 12,
      "weight_kg": null,
      "duration_seconds": null,
      "notes": "note opzionali"
    }
  ],
  "notes": "note generali sessione"
}` + "\n```\n" +
	"4. Usa solo esercizi dalla lista disponibile quando possibile, altrimenti suggerisci nuovi esercizi descrivendoli\n" +
	"5. Adatta l'intensità e il volume all'età e alle condizioni fisiche del cliente\n" +
	"6. Considera l'obiettivo del cliente nella scelta degli esercizi\n" +
	"7. Proponi progressione rispetto alle sessioni precedenti quando appropriato"

// sessionDigest renders "N. DATE[ @ GYM]: name SxR Wkg Mmin, ...".
func sessionDigest(n int, s SessionSummary) string {
	parts := make([]string, 0, len(s.Exercises))
	for _, e := range s.Exercises {
		desc := e.Name
		if e.Sets != nil && *e.Sets != 0 && e.Reps != nil && *e.Reps != 0 {
			desc += fmt.Sprintf(" %dx%d", *e.Sets, *e.Reps)
		}
		if e.WeightKg != nil && *e.WeightKg != 0 {
			desc += " " + strconv.FormatFloat(*e.WeightKg, 'f', -1, 64) + "kg"
		}
		if e.DurationSeconds != nil && *e.DurationSeconds != 0 {
			desc += fmt.Sprintf(" %dmin", int64(math.Floor(float64(*e.DurationSeconds)/60+0.5)))
		}
		parts = append(parts, desc)
	}

	line := fmt.Sprintf("%d. %s", n, s.Date)
	if s.GymName != nil && *s.GymName != "" {
		line += " @ " + *s.GymName
	}
	return line + ": " + strings.Join(parts, ", ")
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
