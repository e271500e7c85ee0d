package models

import "errors"

// Доменные ошибки. Сервисы оборачивают их через %w, HTTP-слой сопоставляет
// их со статусами в response.StatusFor.
var (
	// ErrValidation — некорректная сумма, валюта, ссылка и т.п. (400).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized — нет сессии или токен невалиден (401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden — роль не позволяет выполнить действие (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound — платеж, профиль или пользователь не найдены (404).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessed — запись уже в терминальном состоянии.
	// Для вебхуков и /verify это не ошибка, а идемпотентный no-op.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrGateway — платежный провайдер недоступен или отклонил запрос (502).
	ErrGateway = errors.New("payment gateway error")
	// ErrSignatureInvalid — подпись вебхука не прошла проверку (400).
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	// ErrCohortFull — все места программы раннего доступа заняты.
	ErrCohortFull = errors.New("early access cohort is full")
	// ErrAlreadyEnrolled — пользователь уже записан в программу раннего доступа.
	ErrAlreadyEnrolled = errors.New("already enrolled")
	// ErrUserExists — пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
)
