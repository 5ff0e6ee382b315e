package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/banci/banci/pkg/errors"
	"github.com/banci/banci/pkg/logger"
)

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.WithError(err).Msg("レスポンスの書き込みに失敗しました")
	}
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.GetHTTPStatus(err)

	var appErr *apperrors.AppError
	if e, ok := err.(*apperrors.AppError); ok {
		appErr = e
	} else {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "内部エラーが発生しました")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}

// decodeJSON 解析请求体
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "リクエストボディの解析に失敗しました")
	}
	return nil
}
