package repository

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
)

// EncodeCursor упаковывает позицию последнего сообщения страницы в непрозрачную строку
func EncodeCursor(c domain.MessageCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor разбирает курсор. Пустая строка означает начало ленты (nil, nil).
func DecodeCursor(s string) (*domain.MessageCursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", apperrors.ErrBadRequest)
	}
	return &domain.MessageCursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
