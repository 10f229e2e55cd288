package queue

// Token is an opaque suspend handle returned by TokenPool.Acquire.
// The zero value is never issued.
type Token int64

// TokenPool hands out suspend tokens and reports whether any are
// outstanding. Each caller holds its own token, so one caller can never
// end another caller's suspension.
type TokenPool struct {
	next        Token
	outstanding map[Token]struct{}
	observer    func()
}

// NewTokenPool creates a pool. observer, if non-nil, runs after every
// acquire and every effective release.
func NewTokenPool(observer func()) *TokenPool {
	return &TokenPool{
		outstanding: make(map[Token]struct{}),
		observer:    observer,
	}
}

// Acquire issues a fresh token. Tokens are never reused within a pool.
func (p *TokenPool) Acquire() Token {
	p.next++
	token := p.next
	p.outstanding[token] = struct{}{}
	p.notify()
	return token
}

// Release returns a token to the pool. Releasing an unknown or already
// released token is a no-op.
func (p *TokenPool) Release(token Token) {
	if _, ok := p.outstanding[token]; !ok {
		return
	}
	delete(p.outstanding, token)
	p.notify()
}

// HasOutstanding reports whether at least one token is held.
func (p *TokenPool) HasOutstanding() bool {
	return len(p.outstanding) > 0
}

// Len returns the number of outstanding tokens.
func (p *TokenPool) Len() int {
	return len(p.outstanding)
}

func (p *TokenPool) notify() {
	if p.observer != nil {
		p.observer()
	}
}
