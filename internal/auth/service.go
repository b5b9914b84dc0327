package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/catalogman/internal/metrics"
	"github.com/hitoshi/catalogman/internal/model"
	"github.com/hitoshi/catalogman/internal/repository"
)

// ConnectResult はログインコールバック処理の成功結果を表す。
type ConnectResult struct {
	// AlreadyConnected は同一プロバイダー・同一アイデンティティでの
	// 再ログインを短絡した場合にtrueとなる。セッションは変更されない。
	AlreadyConnected bool
	Username         string
	Picture          string
}

// Service はログインオーケストレーターを提供する。
// stateトークンの検証、プロバイダー別交換処理の起動、アイデンティティ解決、
// セッションへのコミットをリクエスト単位で合成する。
type Service struct {
	registry  *Registry
	resolver  *Resolver
	sessions  repository.SessionRepository
	collector metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	registry *Registry,
	resolver *Resolver,
	sessions repository.SessionRepository,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		registry:  registry,
		resolver:  resolver,
		sessions:  sessions,
		collector: collector,
	}
}

// BeginLogin は新しいstateトークンを発行し、セッションに保存する。
// 既存のトークンは上書きされ、以後永久に使用不能になる。
func (s *Service) BeginLogin(ctx context.Context, session *model.Session) (string, error) {
	token, err := NewStateToken()
	if err != nil {
		return "", err
	}

	session.IssueStateToken(token)
	if err := s.sessions.Update(ctx, session); err != nil {
		return "", fmt.Errorf("failed to persist state token: %w", err)
	}

	return token, nil
}

// Connect はプロバイダーコールバックを処理する。
//
// stateトークンは照合成功時点で消費され、即座に永続化される。
// 以後の交換処理が失敗しても同じトークンでの再送は必ず失敗する。
// stateの不一致ではセッションを一切変更しない。
func (s *Service) Connect(ctx context.Context, session *model.Session, providerName model.Provider, state, artifact string) (*ConnectResult, error) {
	// 1. stateトークンの照合。不一致ならセッションを変更せず拒否する。
	if !session.ConsumeStateToken(state) {
		s.collector.RecordLoginFailure(string(providerName), model.ErrCodeInvalidState)
		return nil, model.NewInvalidStateError()
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to consume state token: %w", err)
	}

	provider, err := s.registry.Get(providerName)
	if err != nil {
		s.collector.RecordLoginFailure(string(providerName), model.ErrCodeUnknownProvider)
		return nil, err
	}

	// 2. プロバイダー別交換処理
	profile, err := provider.Exchange(ctx, artifact)
	if err != nil {
		s.collector.RecordLoginFailure(string(providerName), failureReason(err))
		return nil, err
	}

	// 3. 接続済み判定: 同一アイデンティティでの再ログインはトークンを再発行しない
	if session.AccessToken != "" && session.ProviderIdentity == profile.ProviderIdentity {
		slog.Info("user already connected",
			slog.String("provider", string(providerName)),
			slog.String("user_id", session.UserID),
		)
		return &ConnectResult{
			AlreadyConnected: true,
			Username:         session.Username,
			Picture:          session.Picture,
		}, nil
	}

	// 4. 交換結果をセッションにコミット
	if err := session.Authenticate(providerName, profile.AccessToken, profile.ProviderIdentity,
		profile.Username, profile.Email, profile.Picture); err != nil {
		return nil, fmt.Errorf("failed to authenticate session: %w", err)
	}

	// 5. アイデンティティ解決
	userID, created, err := s.resolver.Resolve(ctx, profile.Email, profile.Username, profile.Picture)
	if err != nil {
		s.collector.RecordLoginFailure(string(providerName), failureReason(err))
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	if created {
		s.collector.RecordUserCreated()
	}
	if err := session.SetUserID(userID); err != nil {
		return nil, fmt.Errorf("failed to set user ID: %w", err)
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	s.collector.RecordLoginSuccess(string(providerName))
	slog.Info("user logged in",
		slog.String("provider", string(providerName)),
		slog.String("user_id", userID),
	)

	return &ConnectResult{
		Username: session.Username,
		Picture:  session.Picture,
	}, nil
}

// Disconnect はプロバイダー固有のdisconnect処理を実行する。
//
// Googleは失効失敗をREVOKE_FAILEDとして呼び出し元に返し、セッションを
// 変更しない。Facebookのdisconnectは常に成功を報告するため、セッションは
// 必ずクリアされる。未接続または別プロバイダーで接続中の場合はNOT_CONNECTED。
func (s *Service) Disconnect(ctx context.Context, session *model.Session, providerName model.Provider) error {
	if session.AccessToken == "" || session.Provider != providerName {
		return model.NewNotConnectedError()
	}

	provider, err := s.registry.Get(providerName)
	if err != nil {
		return err
	}

	if err := provider.Revoke(ctx, session.ProviderIdentity, session.AccessToken); err != nil {
		s.collector.RecordRevokeFailure(string(providerName))
		return err
	}

	userID := session.UserID
	session.ClearIdentity()
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	slog.Info("user disconnected",
		slog.String("provider", string(providerName)),
		slog.String("user_id", userID),
	)
	return nil
}

// Logout はベストエフォートのログアウトを行う。
// 認証中であればプロバイダーのトークン失効を試み、失敗してもログに残すのみで、
// セッションの認証アイデンティティは失効結果に関わらず必ずクリアされる。
func (s *Service) Logout(ctx context.Context, session *model.Session) error {
	if session.Authenticated() {
		providerName := session.Provider
		provider, err := s.registry.Get(providerName)
		if err == nil {
			if err := provider.Revoke(ctx, session.ProviderIdentity, session.AccessToken); err != nil {
				s.collector.RecordRevokeFailure(string(providerName))
				slog.Warn("token revoke failed during logout",
					slog.String("provider", string(providerName)),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	userID := session.UserID
	session.ClearIdentity()
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	slog.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// failureReason はメトリクスのreasonラベルに使うエラーコードを取り出す。
// APIError以外の内部エラーはINTERNALに丸める。
func failureReason(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "INTERNAL"
}
