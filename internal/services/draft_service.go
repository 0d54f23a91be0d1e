package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
	"github.com/SAP-F-2025/course-marketplace/internal/youtube"
)

const defaultResolveConcurrency = 8

type draftService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	resolver       VideoResolver
	publisher      events.EventPublisher
	maxConcurrency int
}

func NewDraftService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, resolver VideoResolver, publisher events.EventPublisher, maxConcurrency int) DraftService {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultResolveConcurrency
	}
	return &draftService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		resolver:       resolver,
		publisher:      publisher,
		maxConcurrency: maxConcurrency,
	}
}

// ===== OWNER OPERATIONS =====

func (s *draftService) Create(ctx context.Context, req *CreateDraftRequest, actor *authz.Actor) (*models.DraftCourse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	draft := &models.DraftCourse{
		UserID:      actor.UserID,
		Name:        strings.TrimSpace(req.Name),
		Author:      req.Author,
		Tags:        datatypes.JSONSlice[string](nonNilStrings(req.Tags)),
		Description: req.Description,
		Content:     toDraftSections(req.Content),
		Price:       req.Price,
		Banner:      req.Banner,
	}
	if err := s.repo.DraftCourse().Create(ctx, nil, draft); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	s.logger.Info("Draft submitted", "draft_id", draft.ID, "user_id", actor.UserID)
	publishEvent(ctx, s.publisher, s.logger, events.DraftSubmitted, events.DraftEventData{
		DraftID:  draft.ID,
		UserID:   actor.UserID,
		Username: actor.Username,
		Email:    actor.Email,
		Name:     draft.Name,
		Items:    draft.ItemCount(),
	})
	return draft, nil
}

// Get is open to the owner and to admins reviewing the submission
func (s *draftService) Get(ctx context.Context, id uint, actor *authz.Actor) (*models.DraftCourse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	draft, err := s.repo.DraftCourse().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrDraftNotFound)
	}
	if !actor.CanManageDraft(draft) && !actor.IsAdmin() {
		return nil, NewPermissionError(actor.UserID, id, "draft", "view", "not owner")
	}
	return draft, nil
}

func (s *draftService) Update(ctx context.Context, id uint, req *UpdateDraftRequest, actor *authz.Actor) (*models.DraftCourse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	draft, err := s.repo.DraftCourse().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrDraftNotFound)
	}
	if !actor.CanManageDraft(draft) {
		return nil, NewPermissionError(actor.UserID, id, "draft", "update", "not owner")
	}

	if req.Name != nil {
		draft.Name = strings.TrimSpace(*req.Name)
	}
	if req.Author != nil {
		draft.Author = *req.Author
	}
	if req.Tags != nil {
		draft.Tags = datatypes.JSONSlice[string](nonNilStrings(*req.Tags))
	}
	if req.Description != nil {
		draft.Description = *req.Description
	}
	if req.Content != nil {
		draft.Content = toDraftSections(*req.Content)
	}
	if req.Price != nil {
		draft.Price = *req.Price
	}
	if req.Banner != nil {
		draft.Banner = *req.Banner
	}

	if err := s.repo.DraftCourse().Update(ctx, nil, draft); err != nil {
		return nil, mapNotFound(err, ErrDraftNotFound)
	}

	s.logger.Info("Draft updated", "draft_id", id, "user_id", actor.UserID)
	return draft, nil
}

func (s *draftService) Delete(ctx context.Context, id uint, actor *authz.Actor) error {
	if err := requireLogin(actor); err != nil {
		return err
	}

	draft, err := s.repo.DraftCourse().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrDraftNotFound)
	}
	if !actor.CanManageDraft(draft) {
		return NewPermissionError(actor.UserID, id, "draft", "delete", "not owner")
	}

	if err := s.repo.DraftCourse().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrDraftNotFound)
	}

	s.logger.Info("Draft deleted", "draft_id", id, "user_id", actor.UserID)
	return nil
}

func (s *draftService) ListMine(ctx context.Context, actor *authz.Actor, page PageRequest) (*DraftListResponse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}
	userID := actor.UserID
	return s.list(ctx, repositories.DraftFilters{UserID: &userID}, page)
}

// ===== ADMIN OPERATIONS =====

func (s *draftService) ListAll(ctx context.Context, actor *authz.Actor, page PageRequest) (*DraftListResponse, error) {
	if err := requireAdmin(actor, "draft", "list"); err != nil {
		return nil, err
	}
	return s.list(ctx, repositories.DraftFilters{}, page)
}

func (s *draftService) list(ctx context.Context, filters repositories.DraftFilters, page PageRequest) (*DraftListResponse, error) {
	page = page.normalize()
	filters.Limit = page.Size
	filters.Offset = page.offset()

	drafts, total, err := s.repo.DraftCourse().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return &DraftListResponse{Drafts: drafts, Total: total, Page: page.Page, Size: page.Size}, nil
}

// Approve publishes the draft as a course. Every reference is resolved
// through the video resolver; references that do not exist are dropped,
// while a resolver outage aborts before anything is written. Creating the
// course, linking it to the owner and deleting the draft commit together.
func (s *draftService) Approve(ctx context.Context, id uint, actor *authz.Actor) (*DraftApprovalResponse, error) {
	if err := requireAdmin(actor, "draft", "approve"); err != nil {
		return nil, err
	}

	draft, err := s.repo.DraftCourse().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrDraftNotFound)
	}
	owner, err := s.repo.User().GetByID(ctx, nil, draft.UserID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	content, dropped, err := s.resolveContent(ctx, draft)
	if err != nil {
		s.logger.Error("Draft resolution failed", "draft_id", id, "error", err)
		return nil, ErrResolverUnavailable
	}

	course := &models.Course{
		UserID:      draft.UserID,
		Name:        draft.Name,
		Author:      draft.Author,
		Tags:        datatypes.JSONSlice[string](nonNilStrings(draft.Tags)),
		Description: draft.Description,
		Content:     content,
		Price:       draft.Price,
		Banner:      draft.Banner,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Course().Create(ctx, tx, course); err != nil {
			return s.approvalError("persist_course", draft, 0, err)
		}
		if err := s.repo.User().AppendCreatedCourse(ctx, tx, draft.UserID, course.ID); err != nil {
			return s.approvalError("link_owner", draft, course.ID, err)
		}
		if err := s.repo.DraftCourse().Delete(ctx, tx, draft.ID); err != nil {
			if repositories.IsNotFoundError(err) {
				// approved concurrently by another admin
				return ErrDraftNotFound
			}
			return s.approvalError("delete_draft", draft, course.ID, err)
		}
		return nil
	})
	if err != nil {
		var wfErr *WorkflowError
		if errors.As(err, &wfErr) {
			s.logger.Error("Draft approval rolled back",
				"draft_id", wfErr.DraftID,
				"course_id", wfErr.CourseID,
				"stage", wfErr.Stage,
				"error", wfErr.Err)
		}
		return nil, err
	}

	resolved := course.ItemCount()
	s.logger.Info("Draft approved",
		"draft_id", draft.ID,
		"course_id", course.ID,
		"resolved_items", resolved,
		"dropped_items", len(dropped),
		"admin_id", actor.UserID)

	publishEvent(ctx, s.publisher, s.logger, events.DraftApproved, events.DraftEventData{
		DraftID:  draft.ID,
		CourseID: course.ID,
		UserID:   owner.ID,
		Username: owner.Username,
		Email:    owner.Email,
		Name:     course.Name,
		Items:    resolved,
		Dropped:  len(dropped),
	})

	return &DraftApprovalResponse{
		Course:        projectCourse(course, actor),
		ResolvedItems: resolved,
		DroppedItems:  dropped,
	}, nil
}

func (s *draftService) approvalError(stage string, draft *models.DraftCourse, courseID uint, err error) error {
	return &WorkflowError{
		Workflow:   "draft_approval",
		Stage:      stage,
		DraftID:    draft.ID,
		CourseID:   courseID,
		RolledBack: true,
		Err:        err,
	}
}

// resolveContent resolves every reference concurrently, keeping section and
// item order. It returns the references that were dropped as unresolvable.
func (s *draftService) resolveContent(ctx context.Context, draft *models.DraftCourse) (datatypes.JSONSlice[models.CourseSection], []string, error) {
	results := make([][]*models.ContentItem, len(draft.Content))
	for i, section := range draft.Content {
		results[i] = make([]*models.ContentItem, len(section.SectionContent))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, section := range draft.Content {
		for j, ref := range section.SectionContent {
			g.Go(func() error {
				item, err := s.resolver.Resolve(gctx, ref)
				if err != nil {
					if errors.Is(err, youtube.ErrUnresolvable) {
						return nil
					}
					return fmt.Errorf("resolve %q: %w", ref, err)
				}
				results[i][j] = item
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sections := make(datatypes.JSONSlice[models.CourseSection], 0, len(draft.Content))
	dropped := []string{}
	for i, section := range draft.Content {
		items := make([]models.ContentItem, 0, len(section.SectionContent))
		for j, ref := range section.SectionContent {
			if results[i][j] == nil {
				dropped = append(dropped, ref)
				continue
			}
			items = append(items, *results[i][j])
		}
		sections = append(sections, models.CourseSection{
			SectionTitle:   section.SectionTitle,
			SectionContent: items,
		})
	}
	return sections, dropped, nil
}

// Reject discards the draft
func (s *draftService) Reject(ctx context.Context, id uint, actor *authz.Actor) error {
	if err := requireAdmin(actor, "draft", "reject"); err != nil {
		return err
	}

	draft, err := s.repo.DraftCourse().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrDraftNotFound)
	}
	if err := s.repo.DraftCourse().Delete(ctx, nil, id); err != nil {
		return mapNotFound(err, ErrDraftNotFound)
	}

	s.logger.Info("Draft rejected", "draft_id", id, "admin_id", actor.UserID)

	data := events.DraftEventData{
		DraftID: draft.ID,
		UserID:  draft.UserID,
		Name:    draft.Name,
		Items:   draft.ItemCount(),
	}
	if owner, err := s.repo.User().GetByID(ctx, nil, draft.UserID); err == nil {
		data.Username = owner.Username
		data.Email = owner.Email
	}
	publishEvent(ctx, s.publisher, s.logger, events.DraftRejected, data)
	return nil
}

func toDraftSections(in []DraftSectionRequest) datatypes.JSONSlice[models.DraftSection] {
	out := make(datatypes.JSONSlice[models.DraftSection], 0, len(in))
	for _, s := range in {
		refs := make([]string, 0, len(s.SectionContent))
		for _, ref := range s.SectionContent {
			refs = append(refs, strings.TrimSpace(ref))
		}
		out = append(out, models.DraftSection{
			SectionTitle:   strings.TrimSpace(s.SectionTitle),
			SectionContent: refs,
		})
	}
	return out
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
