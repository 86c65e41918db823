package navigator

// Debouncer は同じレベルが stable 回連続したときだけ出力を切り替える。
// stable が 1 以下なら入力をそのまま通す。
type Debouncer struct {
	stable  int
	level   bool
	pending bool
	count   int
}

// NewDebouncer は必要な連続読み取り回数を指定して Debouncer を作成する
func NewDebouncer(stable int) *Debouncer {
	return &Debouncer{stable: stable}
}

// Filter は生のレベルを取り込み、確定したレベルを返す
func (d *Debouncer) Filter(raw bool) bool {
	if d.stable <= 1 {
		d.level = raw
		return raw
	}
	if raw == d.level {
		d.count = 0
		return d.level
	}
	if raw != d.pending || d.count == 0 {
		d.pending = raw
		d.count = 1
	} else {
		d.count++
	}
	if d.count >= d.stable {
		d.level = raw
		d.count = 0
	}
	return d.level
}
