package auth

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewStateToken_Has32AlphanumericChars(t *testing.T) {
	token, err := NewStateToken()
	if err != nil {
		t.Fatalf("NewStateToken() error = %v", err)
	}

	if len(token) != 32 {
		t.Errorf("token length = %d, want 32", len(token))
	}

	for _, c := range token {
		if !strings.ContainsRune(stateTokenAlphabet, c) {
			t.Errorf("token contains non-alphanumeric character: %q", c)
		}
	}
}

// TestNewStateToken_RejectsBiasedBytes は棄却域（248以上）のバイトが
// 文字に変換されず読み飛ばされることをテストする。剰余をそのまま使うと
// これらのバイトが先頭8文字に偏って割り当てられてしまう。
func TestNewStateToken_RejectsBiasedBytes(t *testing.T) {
	// 先頭32バイトはすべて棄却域。その後の32バイトだけが採用される。
	src := make([]byte, 0, 64)
	for i := 0; i < 32; i++ {
		src = append(src, byte(248+i%8))
	}
	for i := 0; i < 32; i++ {
		src = append(src, byte(62)) // 62 % 62 = 0 -> 'A'
	}

	token, err := newStateToken(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("newStateToken() error = %v", err)
	}
	if token != strings.Repeat("A", 32) {
		t.Errorf("token = %q, want 32 repetitions of 'A' (biased bytes must be rejected)", token)
	}
}

func TestNewStateToken_PropagatesSourceError(t *testing.T) {
	// 棄却後に十分なバイトが残っていない場合はエラーを返す。
	src := bytes.NewReader([]byte{255, 1, 2, 3})
	if _, err := newStateToken(src); err == nil {
		t.Fatal("newStateToken with exhausted source should return error")
	}
}

func TestNewStateToken_GeneratesDistinctTokens(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewStateToken()
		if err != nil {
			t.Fatalf("NewStateToken() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = true
	}
}
