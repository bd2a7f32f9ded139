package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carpenike/helix/internal/llm"
	"github.com/carpenike/helix/internal/models"
)

// AcceptResult describes the session created from a plan.
type AcceptResult struct {
	Session *models.TrainingSession
	Plan    *llm.TrainingPlan
	// Added is the number of session exercises written.
	Added int
	// Created lists exercise names added to the coach's catalog.
	Created []string
	// Skipped lists proposed exercises that could not be resolved.
	Skipped []string
}

// AcceptPlan turns the conversation's newest unaccepted plan into a planned
// session dated today.
//
// The steps are not transactional. Only a failure to create the session
// aborts the whole operation; an exercise that cannot be resolved is dropped
// and a failed exercise batch leaves an empty session. Calling it again
// after success returns ErrNoPlan without writing anything.
//
// gymID, when set, must be one of the coach's gyms and wins over the gym
// named in the plan.
func (s *Service) AcceptPlan(ctx context.Context, coachID, conversationID int64, gymID *int64) (*AcceptResult, error) {
	conv, err := s.ownedConversation(ctx, coachID, conversationID)
	if err != nil {
		return nil, err
	}

	stored, err := s.Store.LatestUnacceptedPlan(ctx, conv.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNoPlan
	}
	if err != nil {
		return nil, fmt.Errorf("planning: load plan of conversation %d: %w", conv.ID, err)
	}
	plan, err := decodePlan(stored)
	if err != nil {
		return nil, &Error{Msg: "Il piano salvato non è leggibile", Err: err}
	}

	client, err := s.Store.CoachClient(ctx, coachID, conv.ClientID)
	if err != nil {
		return nil, fmt.Errorf("planning: load client %d: %w", conv.ClientID, err)
	}

	gym, err := s.resolveGym(ctx, coachID, gymID, plan.GymName)
	if err != nil {
		return nil, err
	}

	params := models.SessionParams{
		ClientID:    client.ID,
		GymID:       gym,
		SessionDate: s.now().UTC().Format("2006-01-02"),
		Status:      models.SessionPlanned,
	}
	if plan.Notes != nil {
		params.Notes = *plan.Notes
	}
	session, err := s.Store.CreateSession(ctx, params)
	if err != nil {
		return nil, &Error{Msg: "Errore nella creazione della sessione", Err: err}
	}
	log := s.log().WithField("conversation_id", conv.ID).WithField("session_id", session.ID)

	catalog, err := s.Store.ListExercises(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("planning: load exercises for session %d: %w", session.ID, err)
	}
	byName := make(map[string]int64, len(catalog))
	known := make(map[int64]bool, len(catalog))
	for _, e := range catalog {
		byName[strings.ToLower(e.Name)] = e.ID
		known[e.ID] = true
	}

	result := &AcceptResult{Session: session, Plan: plan}
	items := make([]models.SessionExerciseParams, 0, len(plan.Exercises))
	for _, pe := range plan.Exercises {
		name := strings.TrimSpace(pe.ExerciseName)
		key := strings.ToLower(name)

		var id int64
		if ref := pe.ExerciseID.Ptr(); ref != nil && known[*ref] {
			id = *ref
		} else if found, ok := byName[key]; ok && name != "" {
			id = found
		} else {
			if name == "" {
				log.Warn("planning: skipping proposed exercise without a name")
				result.Skipped = append(result.Skipped, pe.ExerciseName)
				continue
			}
			created, err := s.Store.CreateExercise(ctx, coachID, name, deref(pe.Notes))
			if err != nil {
				log.WithError(err).WithField("exercise", name).Warn("planning: skipping exercise that could not be created")
				result.Skipped = append(result.Skipped, name)
				continue
			}
			id = created.ID
			byName[key] = id
			known[id] = true
			result.Created = append(result.Created, created.Name)
		}

		// OrderIndex counts inserted rows, not plan positions: a skipped
		// exercise leaves no gap, so later exercises move up by one.
		items = append(items, models.SessionExerciseParams{
			ExerciseID:      id,
			OrderIndex:      len(items),
			Sets:            pe.Sets.Ptr(),
			Reps:            pe.Reps.Ptr(),
			WeightKg:        pe.WeightKg.Ptr(),
			DurationSeconds: pe.DurationSeconds.Ptr(),
			Notes:           deref(pe.Notes),
		})
	}

	if len(items) > 0 {
		if err := s.Store.AddSessionExercises(ctx, session.ID, items); err != nil {
			log.WithError(err).Error("planning: add session exercises")
		} else {
			result.Added = len(items)
		}
	}

	if _, err := s.Store.MarkPlansAccepted(ctx, conv.ID, session.ID); err != nil {
		return nil, fmt.Errorf("planning: mark plans of conversation %d accepted: %w", conv.ID, err)
	}

	title := fmt.Sprintf("Piano per %s - %s", client.FirstName, plan.SessionDate)
	if _, err := s.Store.SetTitleIfEmpty(ctx, conv.ID, title); err != nil {
		log.WithError(err).Warn("planning: set conversation title")
	}

	s.Metrics.PlanAccepted(len(result.Created), len(result.Skipped))
	if s.Notifier != nil {
		s.Notifier.Broadcast(ctx, "Nuova sessione pianificata",
			fmt.Sprintf("Sessione del %s per %s con %d esercizi.", session.SessionDate, client.FullName(), result.Added))
	}
	log.WithField("exercises", result.Added).Info("planning: plan accepted")

	return result, nil
}

// resolveGym returns the gym for the new session. An explicit id must belong
// to the coach. Without one the plan's gym name is matched case-insensitively;
// no match means no gym.
func (s *Service) resolveGym(ctx context.Context, coachID int64, gymID *int64, planGym *string) (*int64, error) {
	if gymID == nil && (planGym == nil || strings.TrimSpace(*planGym) == "") {
		return nil, nil
	}
	gyms, err := s.Store.ListGyms(ctx, coachID)
	if err != nil {
		return nil, fmt.Errorf("planning: load gyms: %w", err)
	}
	if gymID != nil {
		for _, g := range gyms {
			if g.ID == *gymID {
				id := g.ID
				return &id, nil
			}
		}
		return nil, &Error{Msg: "Palestra non trovata", Err: models.ErrNotFound}
	}
	want := strings.TrimSpace(*planGym)
	for _, g := range gyms {
		if strings.EqualFold(g.Name, want) {
			id := g.ID
			return &id, nil
		}
	}
	return nil, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
