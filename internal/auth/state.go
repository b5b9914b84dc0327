package auth

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	stateTokenLength   = 32
	stateTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// stateTokenBound を超えるバイトは棄却する。
	// 256はアルファベット長62で割り切れないため、剰余をそのまま使うと
	// 先頭の文字が出やすくなる。62の最大倍数248未満のバイトのみ採用する。
	stateTokenBound = 256 - 256%len(stateTokenAlphabet)
)

// NewStateToken はリクエスト偽造防止用のstateトークンを生成する。
// 英数字32文字、暗号的に安全な乱数源から一様に抽出する。
func NewStateToken() (string, error) {
	return newStateToken(rand.Reader)
}

func newStateToken(src io.Reader) (string, error) {
	token := make([]byte, 0, stateTokenLength)
	buf := make([]byte, stateTokenLength)
	for len(token) < stateTokenLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("failed to generate state token: %w", err)
		}
		for _, b := range buf {
			if int(b) >= stateTokenBound {
				continue
			}
			token = append(token, stateTokenAlphabet[int(b)%len(stateTokenAlphabet)])
			if len(token) == stateTokenLength {
				break
			}
		}
	}
	return string(token), nil
}
