package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

// WaitlistRepository maintains the ordered waiting queues. Promotion runs as
// one transaction holding a row lock on the section, so two concurrent
// promote calls can neither double-promote an entry nor promote out of
// (requested_at, id) order.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// FindOpenEntry returns the open entry for a (student, section) pair, nil
// when the student is not waiting.
func (r *WaitlistRepository) FindOpenEntry(ctx context.Context, studentID, sectionID string) (*models.WaitlistEntry, error) {
	const query = `SELECT id, student_id, section_id, requested_at FROM waitlist_entries WHERE student_id = $1 AND section_id = $2 LIMIT 1`
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find waitlist entry: %w", err)
	}
	return &entry, nil
}

// Enqueue appends the student to the section's queue. The unique index on
// (student_id, section_id) makes the call idempotent: a second enqueue with
// no intervening removal reports created=false and leaves one entry.
func (r *WaitlistRepository) Enqueue(ctx context.Context, entry *models.WaitlistEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.RequestedAt.IsZero() {
		entry.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO waitlist_entries (id, student_id, section_id, requested_at)
        VALUES (:id, :student_id, :section_id, :requested_at)
        ON CONFLICT (student_id, section_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return false, fmt.Errorf("enqueue waitlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueue waitlist result: %w", err)
	}
	return affected == 1, nil
}

// PromoteNext moves the oldest waiting student into an active enrollment when
// the section has a free seat. The whole decision runs inside one transaction:
// the section row lock serialises concurrent promotions, the ordered entry
// select fixes who is next, and the entry is deleted only after the enrollment
// row is durably written.
func (r *WaitlistRepository) PromoteNext(ctx context.Context, sectionID string) (*models.PromotionResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promote tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var section models.CourseSection
	if err = tx.GetContext(ctx, &section, `SELECT id, course_id, term_id, COALESCE(instructor_id::text, '') AS instructor_id, schedule, room, capacity, enrolled_count, registration_deadline, created_at, updated_at FROM course_sections WHERE id = $1 FOR UPDATE`, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}

	if section.EnrolledCount >= section.Capacity {
		err = tx.Rollback()
		if err != nil {
			return nil, fmt.Errorf("rollback full promote: %w", err)
		}
		return &models.PromotionResult{Status: models.PromotionSectionFull}, nil
	}

	// A locked entry can turn out to be stale when its student acquired a
	// seat through another path since joining the queue. Such entries are
	// dropped and the next one is considered within the same transaction.
	for {
		var entry models.WaitlistEntry
		if err = tx.GetContext(ctx, &entry, `SELECT id, student_id, section_id, requested_at FROM waitlist_entries WHERE section_id = $1 ORDER BY requested_at ASC, id ASC LIMIT 1 FOR UPDATE`, sectionID); err != nil {
			if err == sql.ErrNoRows {
				err = tx.Rollback()
				if err != nil {
					return nil, fmt.Errorf("rollback empty promote: %w", err)
				}
				return &models.PromotionResult{Status: models.PromotionEmptyQueue}, nil
			}
			return nil, fmt.Errorf("lock next waitlist entry: %w", err)
		}

		var exists int
		dupErr := tx.GetContext(ctx, &exists, `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND term_id = $3 AND status = $4 LIMIT 1`, entry.StudentID, sectionID, section.TermID, models.EnrollmentStatusEnrolled)
		if dupErr != nil && dupErr != sql.ErrNoRows {
			err = fmt.Errorf("recheck active enrollment: %w", dupErr)
			return nil, err
		}
		if dupErr == nil {
			if _, err = tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, entry.ID); err != nil {
				return nil, fmt.Errorf("drop stale waitlist entry: %w", err)
			}
			continue
		}

		enrollment := &models.Enrollment{
			ID:         uuid.NewString(),
			StudentID:  entry.StudentID,
			SectionID:  sectionID,
			TermID:     section.TermID,
			Status:     models.EnrollmentStatusEnrolled,
			EnrolledAt: time.Now().UTC(),
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, section_id, term_id, status, final_grade, enrolled_at)
            VALUES (:id, :student_id, :section_id, :term_id, :status, :final_grade, :enrolled_at)`, enrollment); err != nil {
			return nil, fmt.Errorf("create promoted enrollment: %w", err)
		}

		// The section row is already locked, so the guard cannot fire; it
		// stays as the final line of defense for the capacity invariant.
		var res sql.Result
		res, err = tx.ExecContext(ctx, `UPDATE course_sections SET enrolled_count = enrolled_count + 1, updated_at = $2 WHERE id = $1 AND enrolled_count < capacity`, sectionID, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("increment seat count: %w", err)
		}
		var affected int64
		affected, err = res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("increment seat result: %w", err)
		}
		if affected == 0 {
			err = fmt.Errorf("section %s at capacity during promotion", sectionID)
			return nil, err
		}

		if _, err = tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, entry.ID); err != nil {
			return nil, fmt.Errorf("delete promoted entry: %w", err)
		}

		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit promote tx: %w", err)
		}
		return &models.PromotionResult{Status: models.PromotionPromoted, Entry: &entry, Enrollment: enrollment}, nil
	}
}

// Remove deletes one open entry from a section's queue. It reports whether an
// entry was actually removed. No capacity side effects.
func (r *WaitlistRepository) Remove(ctx context.Context, entryID, sectionID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1 AND section_id = $2`, entryID, sectionID)
	if err != nil {
		return false, fmt.Errorf("remove waitlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove waitlist result: %w", err)
	}
	return affected == 1, nil
}

// ListBySection returns a section's queue in promotion order.
func (r *WaitlistRepository) ListBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntryDetail, error) {
	const query = `SELECT w.id, w.student_id, w.section_id, w.requested_at,
        st.full_name AS student_name, st.nim AS student_nim
        FROM waitlist_entries w
        JOIN students st ON st.id = w.student_id
        WHERE w.section_id = $1
        ORDER BY w.requested_at ASC, w.id ASC`
	var entries []models.WaitlistEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, sectionID); err != nil {
		return nil, fmt.Errorf("list waitlist entries: %w", err)
	}
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}

// ListSectionSummaries returns sections with non-empty waitlists, scoped to
// one instructor when instructorID is set.
func (r *WaitlistRepository) ListSectionSummaries(ctx context.Context, instructorID string) ([]models.WaitlistSectionSummary, error) {
	query := `SELECT s.id AS section_id, c.code AS course_code, c.title AS course_title, s.schedule, s.capacity, s.enrolled_count, COUNT(w.id) AS waiting_count
        FROM waitlist_entries w
        JOIN course_sections s ON s.id = w.section_id
        JOIN courses c ON c.id = s.course_id`
	args := []interface{}{}
	if instructorID != "" {
		query += ` WHERE s.instructor_id = $1`
		args = append(args, instructorID)
	}
	query += ` GROUP BY s.id, c.code, c.title, s.schedule, s.capacity, s.enrolled_count ORDER BY c.code ASC`

	var summaries []models.WaitlistSectionSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("list waitlist sections: %w", err)
	}
	return summaries, nil
}
