package clientcard

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carpenike/helix/internal/database"
	"github.com/carpenike/helix/internal/models"
)

var now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func str(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }
func i64(v int64) sql.NullInt64 { return sql.NullInt64{Int64: v, Valid: true} }
func f64(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func sampleData() *Data {
	client := &models.Client{
		ID:            1,
		FirstName:     "Anna",
		LastName:      "Bianchi",
		BirthDate:     str("1990-06-20"),
		Gender:        str("female"),
		PhysicalNotes: str("Lieve lombalgia"),
	}
	return &Data{
		Client: client,
		Goals: []*models.GoalHistoryEntry{
			{Goal: "Tonificazione", StartedAt: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)},
			{Goal: "Dimagrimento", StartedAt: time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)},
		},
		Sessions: []Session{
			{
				TrainingSession: &models.TrainingSession{
					SessionDate:    "2025-03-10",
					Status:         models.SessionCompleted,
					GymName:        str("Palestra Centro"),
					GymAddress:     str("Via Roma 1"),
					GymDescription: str("Sala pesi al primo piano"),
				},
				Exercises: []*models.SessionExercise{
					{OrderIndex: 1, ExerciseName: "Plank", DurationSeconds: i64(90), Skipped: true},
					{OrderIndex: 0, ExerciseName: "Squat", Sets: i64(4), Reps: i64(8), WeightKg: f64(42.5), Notes: str("Schiena dritta"), Completed: true},
				},
			},
			{
				TrainingSession: &models.TrainingSession{SessionDate: "2025-03-17", Status: models.SessionPlanned},
			},
		},
	}
}

func TestGenerate(t *testing.T) {
	got := Generate(sampleData(), Options{}, now)

	want := "# Anna Bianchi\n\n" +
		"## Dati Anagrafici\n\n" +
		"- **Eta**: 34 anni\n" +
		"- **Data di nascita**: 20/06/1990\n" +
		"- **Genere**: Femmina\n\n" +
		"## Anamnesi\n\n" +
		"Lieve lombalgia\n\n" +
		"## Storia Obiettivi\n\n" +
		"1. **[ATTUALE]** Tonificazione _(dal 10/01/2025)_\n" +
		"2. Dimagrimento _(dal 02/05/2024)_\n\n" +
		"## Sessioni\n\n" +
		"### 10/03/2025 - Completata\n\n" +
		"**Palestra**: Palestra Centro\n" +
		"**Indirizzo**: Via Roma 1\n" +
		"**Dettagli**: Sala pesi al primo piano\n\n" +
		"1. ✓ Squat - 4 serie, 8 reps, 42.5 kg\n" +
		"   - _Schiena dritta_\n" +
		"2. X Plank - 1m 30s\n\n" +
		"### 17/03/2025 - Pianificata\n\n" +
		"**Palestra**: Nessuna palestra\n\n" +
		"_Nessun esercizio in questa sessione._\n\n"
	assert.Equal(t, want, got)
}

func TestGenerate_Options(t *testing.T) {
	got := Generate(sampleData(), Options{HideName: true, HideGymDescription: true}, now)
	assert.NotContains(t, got, "# Anna Bianchi")
	assert.NotContains(t, got, "Sala pesi")
	assert.Contains(t, got, "**Indirizzo**: Via Roma 1")
}

func TestGenerate_Empty(t *testing.T) {
	d := &Data{Client: &models.Client{FirstName: "Marco", LastName: "Rossi", AgeYears: i64(52)}}
	got := Generate(d, Options{}, now)

	assert.Contains(t, got, "- **Eta**: 52 anni\n")
	assert.NotContains(t, got, "Data di nascita")
	assert.NotContains(t, got, "Genere")
	assert.Contains(t, got, "_Nessuna nota fisica registrata._")
	assert.Contains(t, got, "_Nessun obiettivo registrato._")
	assert.Contains(t, got, "_Nessuna sessione registrata._")
}

func TestDetails(t *testing.T) {
	assert.Equal(t, "", details(&models.SessionExercise{}))
	assert.Equal(t, " - 45s", details(&models.SessionExercise{DurationSeconds: i64(45)}))
	assert.Equal(t, " - 3 serie, 20 kg", details(&models.SessionExercise{Sets: i64(3), WeightKg: f64(20)}))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { db.Close() })

	coach, err := models.CreateUser(ctx, db, "coach", "password123", "")
	require.NoError(t, err)
	client, err := models.CreateClient(ctx, db, models.ClientParams{UserID: coach.ID, FirstName: "Anna", LastName: "Bianchi", Goal: "Forza"})
	require.NoError(t, err)
	squat, err := models.CreateExercise(ctx, db, &coach.ID, "Squat", "")
	require.NoError(t, err)
	session, err := models.CreateSession(ctx, db, models.SessionParams{ClientID: client.ID, SessionDate: "2025-03-10"})
	require.NoError(t, err)
	require.NoError(t, models.AddSessionExercises(ctx, db, session.ID, []models.SessionExerciseParams{
		{ExerciseID: squat.ID, Sets: ptr(int64(3)), Reps: ptr(int64(10))},
	}))

	d, err := Load(ctx, db, client)
	require.NoError(t, err)
	require.Len(t, d.Goals, 1)
	require.Len(t, d.Sessions, 1)
	require.Len(t, d.Sessions[0].Exercises, 1)

	got := Generate(d, Options{}, now)
	assert.Contains(t, got, "1. **[ATTUALE]** Forza")
	assert.Contains(t, got, "### 10/03/2025 - Pianificata")
	assert.Contains(t, got, "1. Squat - 3 serie, 10 reps\n")
}

func ptr[T any](v T) *T { return &v }
