// Package imgpostgres keeps signing tasks in the photos table.
package imgpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// sort columns accepted by GetList; anything else is replaced by created_at
var sortColumns = map[string]bool{"photo_uid": true, "created_at": true}

func (p PostgresRepo) Create(ctx context.Context, n *model.Photo) error {
	query := `INSERT INTO photos (photo_uid, source_key, result_key, options, status, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := p.DB.Master.ExecContext(ctx, query, n.UID, n.SourceKey, n.ResultKey, n.Options, n.Status, n.ErrMsg, n.CreatedAt, n.CreatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Photo, error) {
	query := `SELECT photo_uid, source_key, result_key, options, status, sign_name, distance, err_msg, created_at, updated_at
	FROM photos
	WHERE photo_uid = $1`
	var photo model.Photo

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&photo.UID,
		&photo.SourceKey,
		&photo.ResultKey,
		&photo.Options,
		&photo.Status,
		&photo.SignName,
		&photo.Distance,
		&photo.ErrMsg,
		&photo.CreatedAt,
		&photo.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrPhotoNotFound
		default:
			return nil, err // 500
		}
	}
	return &photo, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	sortBy, order := req.Sort, req.Order
	if !sortColumns[sortBy] {
		sortBy = "created_at"
	}
	if order != "ASC" {
		order = "DESC"
	}

	query := fmt.Sprintf(`SELECT photo_uid, options, status, sign_name, distance, err_msg, created_at, updated_at
	FROM photos
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, sortBy, order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	photos := make([]model.Photo, 0, req.Limit)
	for rows.Next() {
		var photo model.Photo
		if err := rows.Scan(&photo.UID,
			&photo.Options,
			&photo.Status,
			&photo.SignName,
			&photo.Distance,
			&photo.ErrMsg,
			&photo.CreatedAt,
			&photo.UpdatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return photos, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM photos
	WHERE photo_uid = $1`

	res, err := p.DB.Master.ExecContext(ctx, query, id)
	return affectedOne(res, err)
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE photos SET status = $1, updated_at = now() WHERE photo_uid = $2`

	res, err := p.DB.Master.ExecContext(ctx, query, newStat, id)
	return affectedOne(res, err)
}

// SaveResult stores the final state of a task, successful or not.
func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Photo) error {
	query := `UPDATE photos
	SET status = $1, result_key = $2, sign_name = $3, distance = $4, err_msg = $5, updated_at = $6
	WHERE photo_uid = $7`

	res, err := p.DB.Master.ExecContext(ctx, query,
		input.Status,
		input.ResultKey,
		input.SignName,
		input.Distance,
		input.ErrMsg,
		input.UpdatedAt,
		input.UID)
	return affectedOne(res, err)
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT photo_uid
	FROM photos
	WHERE status IN ($1, $2)
	AND updated_at < $3
	LIMIT $4`

	staleBefore := time.Now().Add(-model.OrphanAfter)
	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, staleBefore, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err // 500
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrPhotoNotFound // 404
	}
	return nil
}
