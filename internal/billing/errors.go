// Package billing は決済・サブスクリプション管理と資格調整を提供する。
package billing

import (
	"errors"

	"github.com/stripe/stripe-go/v82"

	"github.com/hitoshi/studyshare/internal/model"
)

// 決済プロバイダ由来のエラーを分類した固定のユーザー向けメッセージ。
// 生のプロバイダエラーは決してそのまま表に出さない。
const (
	msgRateLimited   = "Too many requests to the payment service. Please try again in a moment."
	msgConnection    = "Could not reach the payment service. Check your connection and try again."
	msgConfiguration = "The payment service is not configured correctly. Please contact support."
	msgProviderError = "The payment service returned an error. Please try again."
	msgGeneric       = "Could not create checkout session. Please try again."
)

// MapStripeError は決済プロバイダのエラーを固定メッセージ集合の
// EXTERNAL_SERVICE_ERRORへ分類する。
// 分類: レート制限 / 接続不可 / 設定不備（認証失敗） / プロバイダ側エラー / その他。
func MapStripeError(err error) *model.APIError {
	var rateLimitErr *stripe.RateLimitError
	var connectionErr *stripe.APIConnectionError
	var authenticationErr *stripe.AuthenticationError
	var providerErr *stripe.APIError

	switch {
	case errors.As(err, &rateLimitErr):
		return model.NewExternalServiceError(msgRateLimited)
	case errors.As(err, &connectionErr):
		return model.NewExternalServiceError(msgConnection)
	case errors.As(err, &authenticationErr):
		// 認証失敗はAPIキーの設定不備であり、ユーザー側では解消できない
		return model.NewExternalServiceError(msgConfiguration)
	case errors.As(err, &providerErr):
		return model.NewExternalServiceError(msgProviderError)
	default:
		return model.NewExternalServiceError(msgGeneric)
	}
}
