package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
	pgStringTooLong       = "22001"
)

// Внешние ключи на родителя, который мог исчезнуть между чтением и записью:
// ревью вытеснено из очереди или комната не существует
var parentConstraints = map[string]struct{}{
	"reviews_room_id_fkey":            {},
	"review_assignees_review_id_fkey": {},
	"room_members_room_slug_fkey":     {},
}

// Дубликаты внутри одного списка участников или ревьюеров, а не повторное создание ресурса
var memberKeyConstraints = map[string]struct{}{
	"room_members_pkey":     {},
	"review_assignees_pkey": {},
}

// handleDBError переводит ошибки pgx и коды SQLSTATE в ошибки репозитория
func handleDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if _, ok := memberKeyConstraints[pgErr.ConstraintName]; ok {
			return ErrInvalidInput
		}
		return ErrAlreadyExists
	case pgForeignKeyViolation:
		if _, ok := parentConstraints[pgErr.ConstraintName]; ok {
			return ErrNotFound
		}
		return ErrInvalidInput
	case pgNotNullViolation, pgCheckViolation, pgInvalidText, pgStringTooLong:
		return ErrInvalidInput
	}
	return err
}
