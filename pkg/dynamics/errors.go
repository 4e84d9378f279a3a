package dynamics

import "errors"

// ErrMalformedInput 分析の前提（面接時間・書き起こし）が壊れている入力
var ErrMalformedInput = errors.New("malformed interview input")
