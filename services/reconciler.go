package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/downstream"
	berrors "github.com/edulab-dev/lms-bridge/errors"
	"github.com/edulab-dev/lms-bridge/internal/metrics"
	"github.com/edulab-dev/lms-bridge/moodle"
)

// ReconcilePolicy controls the update branch of a pass. When UpdateExisting
// is off, already-linked entities are counted as skipped and their local
// fields are left alone; the link itself is never refreshed either way.
type ReconcilePolicy struct {
	UpdateExisting bool
}

// MoodleReader is the slice of the remote API the reconciler consumes.
type MoodleReader interface {
	GetCategories(ctx context.Context) ([]moodle.Category, error)
	GetCourses(ctx context.Context) ([]moodle.Course, error)
	GetEnrolledUsers(ctx context.Context, courseID int64) ([]moodle.EnrolledUser, error)
	CourseViewURL(remoteID int64) string
}

// CoursePusher is the slice of the downstream client the reconciler uses.
type CoursePusher interface {
	PushCourse(ctx context.Context, record *downstream.CourseRecord) error
}

// Reconciler pulls categories, courses and rosters from the remote learning
// system into local storage and pushes local course records downstream.
// Runs are not locked against each other; idempotency rests entirely on the
// external-link existence check, so two overlapping runs can in rare cases
// both create the same local record.
type Reconciler struct {
	remote  MoodleReader
	links   domain.LinkRepository
	terms   domain.TermRepository
	courses domain.CourseRepository
	pusher  CoursePusher
	policy  ReconcilePolicy
}

// NewReconciler creates a new Reconciler instance. pusher may be nil when no
// downstream consumer is configured; the push pass then reports zero work.
func NewReconciler(
	remote MoodleReader,
	links domain.LinkRepository,
	terms domain.TermRepository,
	courses domain.CourseRepository,
	pusher CoursePusher,
	policy ReconcilePolicy,
) *Reconciler {
	return &Reconciler{
		remote:  remote,
		links:   links,
		terms:   terms,
		courses: courses,
		pusher:  pusher,
		policy:  policy,
	}
}

// remoteEntity parameterizes the generic pass with entity-specific create
// and update callbacks. Every entity type reuses the same three-way
// create/update/skip classification keyed on the external link.
type remoteEntity struct {
	remoteID int64
	create   func(ctx context.Context) (localID string, err error)
	update   func(ctx context.Context, localID string) error
}

// reconcile sweeps one entity type. Failures are scoped to single items;
// one bad remote record never aborts the sweep.
func (r *Reconciler) reconcile(ctx context.Context, entity domain.EntityType, items []remoteEntity) domain.SyncRunResult {
	result := domain.SyncRunResult{EntityType: entity}

	for _, item := range items {
		result.Scanned++

		link, err := r.links.GetLinkByRemote(ctx, entity, item.remoteID)
		switch {
		case err == nil:
			if !r.policy.UpdateExisting {
				result.Skipped++
				metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "skipped").Inc()
				continue
			}
			if err := item.update(ctx, link.LocalID); err != nil {
				result.Failed++
				metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "failed").Inc()
				log.Warn().Err(err).Str("entity", string(entity)).
					Int64("remote_id", item.remoteID).Msg("reconcile update failed")
				continue
			}
			result.Updated++
			metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "updated").Inc()

		case errors.Is(err, berrors.ErrNotFound):
			localID, err := item.create(ctx)
			if err != nil {
				result.Failed++
				metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "failed").Inc()
				log.Warn().Err(err).Str("entity", string(entity)).
					Int64("remote_id", item.remoteID).Msg("reconcile create failed")
				continue
			}
			if err := r.links.CreateLink(ctx, &domain.ExternalLink{
				EntityType: entity,
				RemoteID:   item.remoteID,
				LocalID:    localID,
			}); err != nil {
				// The unique index lost a race with a concurrent run; the
				// local record exists twice but the mapping stays single.
				result.Failed++
				metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "failed").Inc()
				log.Warn().Err(err).Str("entity", string(entity)).
					Int64("remote_id", item.remoteID).Msg("reconcile link creation failed")
				continue
			}
			result.Created++
			metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "created").Inc()

		default:
			// A failed lookup says nothing about whether the entity is
			// linked; creating here would duplicate it. Touch nothing.
			result.Failed++
			metrics.SyncEntitiesTotal.WithLabelValues(string(entity), "failed").Inc()
			log.Warn().Err(err).Str("entity", string(entity)).
				Int64("remote_id", item.remoteID).Msg("reconcile link lookup failed")
		}
	}

	return result
}

// SyncCategories pulls the remote category tree. Parent references are
// resolved in a second sweep and only for parents whose link already
// exists, so a grandparent created in this run may need a later run before
// its grandchild is fully linked.
func (r *Reconciler) SyncCategories(ctx context.Context) (domain.SyncRunResult, error) {
	cats, err := r.remote.GetCategories(ctx)
	if err != nil {
		metrics.SyncPassFailuresTotal.WithLabelValues(string(domain.EntityCategory)).Inc()
		return domain.SyncRunResult{EntityType: domain.EntityCategory}, err
	}

	items := make([]remoteEntity, 0, len(cats))
	for _, cat := range cats {
		items = append(items, remoteEntity{
			remoteID: cat.ID,
			create: func(ctx context.Context) (string, error) {
				return r.terms.CreateTerm(ctx, &domain.Term{
					Name:        cat.Name,
					Description: cat.Description,
				})
			},
			update: func(ctx context.Context, localID string) error {
				return r.terms.UpdateTerm(ctx, &domain.Term{
					ID:          localID,
					Name:        cat.Name,
					Description: cat.Description,
				})
			},
		})
	}

	result := r.reconcile(ctx, domain.EntityCategory, items)
	r.linkCategoryParents(ctx, cats)
	return result, nil
}

// linkCategoryParents sets parent pointers for every category whose own
// link and whose parent's link both exist.
func (r *Reconciler) linkCategoryParents(ctx context.Context, cats []moodle.Category) {
	for _, cat := range cats {
		if cat.Parent == 0 {
			continue
		}
		childLink, err := r.links.GetLinkByRemote(ctx, domain.EntityCategory, cat.ID)
		if err != nil {
			continue
		}
		parentLink, err := r.links.GetLinkByRemote(ctx, domain.EntityCategory, cat.Parent)
		if err != nil {
			// Parent not linked yet; a later run resolves it.
			continue
		}
		if err := r.terms.SetTermParent(ctx, childLink.LocalID, parentLink.LocalID); err != nil {
			log.Warn().Err(err).Int64("remote_id", cat.ID).
				Msg("failed to set category parent link")
		}
	}
}

// SyncCourses pulls remote courses, skipping the remote's system course.
func (r *Reconciler) SyncCourses(ctx context.Context) (domain.SyncRunResult, error) {
	remoteCourses, err := r.remote.GetCourses(ctx)
	if err != nil {
		metrics.SyncPassFailuresTotal.WithLabelValues(string(domain.EntityCourse)).Inc()
		return domain.SyncRunResult{EntityType: domain.EntityCourse}, err
	}

	items := make([]remoteEntity, 0, len(remoteCourses))
	for _, rc := range remoteCourses {
		if rc.ID == moodle.SystemCourseID {
			continue
		}
		items = append(items, remoteEntity{
			remoteID: rc.ID,
			create: func(ctx context.Context) (string, error) {
				course := r.localCourse(ctx, rc)
				return r.courses.CreateCourse(ctx, course)
			},
			update: func(ctx context.Context, localID string) error {
				course := r.localCourse(ctx, rc)
				course.ID = localID
				return r.courses.UpdateCourse(ctx, course)
			},
		})
	}

	return r.reconcile(ctx, domain.EntityCourse, items), nil
}

// localCourse maps a remote course onto the local record shape, resolving
// its category through the link table and stamping dates and the canonical
// remote view URL.
func (r *Reconciler) localCourse(ctx context.Context, rc moodle.Course) *domain.Course {
	course := &domain.Course{
		Name:      rc.FullName,
		Summary:   rc.Summary,
		RemoteURL: r.remote.CourseViewURL(rc.ID),
		Status:    domain.CourseStatusHidden,
	}
	if rc.Visible != 0 {
		course.Status = domain.CourseStatusVisible
	}
	if rc.StartDate > 0 {
		t := time.Unix(rc.StartDate, 0).UTC()
		course.StartDate = &t
	}
	if rc.EndDate > 0 {
		t := time.Unix(rc.EndDate, 0).UTC()
		course.EndDate = &t
	}
	if termLink, err := r.links.GetLinkByRemote(ctx, domain.EntityCategory, rc.CategoryID); err == nil {
		course.TermID = termLink.LocalID
	}
	return course
}

// SyncRosters replaces the roster of every linked course with the remote
// enrollment list and recomputes the enrollment count. There is no
// create/update/skip distinction here; it is a full replace per course.
func (r *Reconciler) SyncRosters(ctx context.Context) (domain.SyncRunResult, error) {
	result := domain.SyncRunResult{EntityType: domain.EntityUser}

	courseLinks, err := r.links.ListLinksByType(ctx, domain.EntityCourse)
	if err != nil {
		metrics.SyncPassFailuresTotal.WithLabelValues(string(domain.EntityUser)).Inc()
		return result, err
	}

	for _, link := range courseLinks {
		result.Scanned++

		enrolled, err := r.remote.GetEnrolledUsers(ctx, link.RemoteID)
		if err != nil {
			result.Failed++
			log.Warn().Err(err).Int64("remote_course", link.RemoteID).
				Msg("roster fetch failed, keeping previous roster")
			continue
		}

		roster := make([]domain.RosterEntry, 0, len(enrolled))
		for _, e := range enrolled {
			roster = append(roster, domain.RosterEntry{
				RemoteUserID: e.ID,
				Username:     e.Username,
				FirstName:    e.FirstName,
				LastName:     e.LastName,
				Email:        e.Email,
			})
		}
		if err := r.courses.ReplaceRoster(ctx, link.LocalID, roster); err != nil {
			result.Failed++
			log.Warn().Err(err).Str("course_id", link.LocalID).Msg("roster replace failed")
			continue
		}
		result.Updated++
	}

	return result, nil
}

// PushDownstream serializes every local course into a flat record and
// upserts it into the downstream consumer, one POST per course. Each call
// is independent; a failure only affects that course.
func (r *Reconciler) PushDownstream(ctx context.Context) (domain.SyncRunResult, error) {
	result := domain.SyncRunResult{EntityType: domain.EntityCourse}
	if r.pusher == nil {
		return result, nil
	}

	localCourses, err := r.courses.ListCourses(ctx)
	if err != nil {
		metrics.SyncPassFailuresTotal.WithLabelValues(string(domain.EntityCourse)).Inc()
		return result, err
	}

	remoteIDs := make(map[string]int64)
	if courseLinks, err := r.links.ListLinksByType(ctx, domain.EntityCourse); err == nil {
		for _, link := range courseLinks {
			remoteIDs[link.LocalID] = link.RemoteID
		}
	}

	for _, course := range localCourses {
		result.Scanned++

		record := &downstream.CourseRecord{
			LocalID:     course.ID,
			RemoteID:    remoteIDs[course.ID],
			Name:        course.Name,
			Description: course.Summary,
			Price:       course.Price,
			Capacity:    course.Capacity,
			Enrollment:  course.EnrollmentCount,
			Status:      string(course.Status),
		}
		if course.StartDate != nil {
			record.StartDate = course.StartDate.Format("2006-01-02")
		}
		if course.EndDate != nil {
			record.EndDate = course.EndDate.Format("2006-01-02")
		}
		if course.TermID != "" {
			if term, err := r.terms.GetTermByID(ctx, course.TermID); err == nil {
				record.Category = term.Name
			}
		}

		if err := r.pusher.PushCourse(ctx, record); err != nil {
			result.Failed++
			metrics.DownstreamPushTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("course_id", course.ID).Msg("downstream push failed")
			continue
		}
		result.Updated++
		metrics.DownstreamPushTotal.WithLabelValues("ok").Inc()
	}

	return result, nil
}

// RunAll executes every pass in order. Passes are independent; a failed
// fetch degrades that pass to no data and the rest still run.
func (r *Reconciler) RunAll(ctx context.Context) []domain.SyncRunResult {
	var results []domain.SyncRunResult

	passes := []struct {
		name string
		run  func(context.Context) (domain.SyncRunResult, error)
	}{
		{"categories", r.SyncCategories},
		{"courses", r.SyncCourses},
		{"rosters", r.SyncRosters},
		{"downstream", r.PushDownstream},
	}
	for _, pass := range passes {
		result, err := pass.run(ctx)
		if err != nil {
			log.Warn().Err(err).Str("pass", pass.name).Msg("reconciliation pass degraded to no data")
		}
		log.Info().Str("pass", pass.name).
			Int("scanned", result.Scanned).Int("created", result.Created).
			Int("updated", result.Updated).Int("skipped", result.Skipped).
			Int("failed", result.Failed).Msg("reconciliation pass finished")
		results = append(results, result)
	}
	return results
}
