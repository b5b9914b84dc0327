package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/catalogman/internal/model"
	"github.com/hitoshi/catalogman/internal/repository"
)

// Resolver は検証済みメールアドレスをローカルユーザーに対応付ける。
//
// メールアドレスはプロバイダー横断の名寄せキーであり、Userは
// 初めて観測されたメールアドレスごとに一度だけ作成される。
// 2回目以降の解決はname/pictureを更新せず既存レコードを返す。
type Resolver struct {
	users repository.UserRepository
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// Resolve はメールアドレスからuser_idを解決する。
// 未登録の場合はUserを作成し、createdとしてtrueを返す。
// 同一メールの初回ログインが同時に走った場合のユニーク制約違反は、
// 並行した勝者のレコードを引き直すことでローカルに回復する。
func (r *Resolver) Resolve(ctx context.Context, email, name, picture string) (userID string, created bool, err error) {
	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve user by email: %w", err)
	}
	if user != nil {
		return user.ID, false, nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = r.users.Create(ctx, newUser)
	if err == nil {
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("email", email),
		)
		return newUser.ID, true, nil
	}

	if !repository.IsUniqueViolation(err) {
		return "", false, fmt.Errorf("failed to create user: %w", err)
	}

	// 同時初回ログインとの競合。勝者が作成したレコードを引き直す。
	slog.Info("user creation raced, retrying as lookup", slog.String("email", email))
	user, lookupErr := r.users.FindByEmail(ctx, email)
	if lookupErr != nil {
		return "", false, fmt.Errorf("failed to re-resolve user after race: %w", lookupErr)
	}
	if user == nil {
		return "", false, fmt.Errorf("user vanished after uniqueness race: %s", email)
	}

	return user.ID, false, nil
}
