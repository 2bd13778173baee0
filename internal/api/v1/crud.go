package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/learnforge/trainingportal/internal/entities"
	"github.com/learnforge/trainingportal/internal/logger"
)

// crudRepository is the part of repository.Repository the admin CRUD uses
type crudRepository[T any] interface {
	Collection() string
	GetAll() ([]T, error)
	GetByID(id int) (T, bool, error)
	Add(rec T) (T, error)
	Update(rec T) (T, error)
	Delete(id int) (bool, error)
}

// resource exposes one collection as admin CRUD endpoints
type resource[T any] struct {
	name  string // path segment
	label string // used in messages
	repo  crudRepository[T]
	ctrl  *Controller

	// prepare fills defaults before validation
	prepare func(rec *T)
	// check enforces cross-record rules; id is 0 on create
	check func(rec *T, id int) error
}

// mountCRUD registers list, get, create, update and delete for r under g
func mountCRUD[T any](g *echo.Group, r *resource[T]) {
	g.GET("/"+r.name, r.list)
	g.POST("/"+r.name, r.create)
	g.GET("/"+r.name+"/:id", r.get)
	g.PUT("/"+r.name+"/:id", r.update)
	g.DELETE("/"+r.name+"/:id", r.remove)
}

func includeDeleted(ctx echo.Context) bool {
	v, _ := strconv.ParseBool(ctx.QueryParam("includeDeleted"))
	return v
}

func (r *resource[T]) list(ctx echo.Context) error {
	all, err := r.repo.GetAll()
	if err != nil {
		return r.ctrl.handleStoreError(ctx, err, "Failed to load "+r.name)
	}
	if includeDeleted(ctx) {
		return ctx.JSON(http.StatusOK, all)
	}
	return ctx.JSON(http.StatusOK, filter(all, func(rec *T) bool { return entities.IsActive(*rec) }))
}

// load returns the record with the :id parameter, or writes the error
// response and returns ok=false
func (r *resource[T]) load(ctx echo.Context, allowDeleted bool) (rec T, id int, ok bool, err error) {
	id, err = parseID(ctx)
	if err != nil {
		return rec, 0, false, r.ctrl.HandleError(ctx, err, "Invalid "+r.label+" id", http.StatusBadRequest)
	}
	rec, found, err := r.repo.GetByID(id)
	if err != nil {
		return rec, id, false, r.ctrl.handleStoreError(ctx, err, "Failed to load "+r.label)
	}
	if !found || (!allowDeleted && !entities.IsActive(rec)) {
		return rec, id, false, r.ctrl.notFound(ctx, r.label)
	}
	return rec, id, true, nil
}

func (r *resource[T]) get(ctx echo.Context) error {
	rec, _, ok, err := r.load(ctx, includeDeleted(ctx))
	if !ok {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

// decode binds, defaults, validates and checks a record from the body
func (r *resource[T]) decode(ctx echo.Context, id int) (T, error) {
	var rec T
	if err := bindBody(ctx, &rec); err != nil {
		return rec, err
	}
	if a, ok := any(&rec).(entities.IDAssignable); ok {
		a.SetRecordID(id)
	}
	if r.prepare != nil {
		r.prepare(&rec)
	}
	if err := validate(&rec); err != nil {
		return rec, err
	}
	if r.check != nil {
		if err := r.check(&rec, id); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func (r *resource[T]) create(ctx echo.Context) error {
	rec, err := r.decode(ctx, 0)
	if err != nil {
		return r.ctrl.HandleError(ctx, err, "Invalid "+r.label, statusFor(err))
	}
	saved, err := r.repo.Add(rec)
	if err != nil {
		return r.ctrl.handleStoreError(ctx, err, "Failed to create "+r.label)
	}
	r.audit(ctx, "created", saved)
	return ctx.JSON(http.StatusCreated, saved)
}

func (r *resource[T]) update(ctx echo.Context) error {
	_, id, ok, err := r.load(ctx, false)
	if !ok {
		return err
	}
	rec, err := r.decode(ctx, id)
	if err != nil {
		return r.ctrl.HandleError(ctx, err, "Invalid "+r.label, statusFor(err))
	}
	saved, err := r.repo.Update(rec)
	if err != nil {
		return r.ctrl.handleStoreError(ctx, err, "Failed to update "+r.label)
	}
	r.audit(ctx, "updated", saved)
	return ctx.JSON(http.StatusOK, saved)
}

func (r *resource[T]) remove(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return r.ctrl.HandleError(ctx, err, "Invalid "+r.label+" id", http.StatusBadRequest)
	}
	found, err := r.repo.Delete(id)
	if err != nil {
		return r.ctrl.handleStoreError(ctx, err, "Failed to delete "+r.label)
	}
	if !found {
		return r.ctrl.notFound(ctx, r.label)
	}
	r.ctrl.log.Info("record deleted",
		logger.String("collection", r.repo.Collection()),
		logger.Int("id", id),
		logger.String("admin", adminUser(ctx)))
	return ctx.NoContent(http.StatusNoContent)
}

func (r *resource[T]) audit(ctx echo.Context, action string, rec T) {
	id := 0
	if ident, ok := any(&rec).(entities.Identified); ok {
		id = ident.RecordID()
	}
	r.ctrl.log.Info("record "+action,
		logger.String("collection", r.repo.Collection()),
		logger.Int("id", id),
		logger.String("admin", adminUser(ctx)))
}
