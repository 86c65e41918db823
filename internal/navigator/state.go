package navigator

import "time"

// Snapshot は1サイクル分の入力
type Snapshot struct {
	Axis    AxisSample
	Buttons [NumButtons]bool // true = 押下中
	Now     uint32           // 単調増加するミリ秒時刻（桁あふれ可）
}

// Status はステートマシンの公開用スナップショット
type Status struct {
	DefaultMode Mode
	CurrentMode Mode
	Buttons     [NumButtons]bool
	Moving      bool
}

// State はコントローラの状態をすべて保持する。
// Tick は1つのループからのみ呼び出すこと。
type State struct {
	settings Settings

	defaultMode Mode
	currentMode Mode

	buttons   [NumButtons]ButtonState
	debounce  [NumButtons]*Debouncer
	press     PressTimer
	moved     [NumModes]bool
	heldLevel [NumButtons]bool
}

// NewState は開始モードで初期化された State を作成する。
// settings は Validate 済みであること。
func NewState(settings Settings) *State {
	s := &State{
		settings:    settings,
		defaultMode: settings.StartMode,
		currentMode: settings.StartMode,
	}
	s.resetDebounce()
	return s
}

func (s *State) resetDebounce() {
	for i := range s.debounce {
		d := NewDebouncer(s.settings.DebounceReads)
		d.level = s.buttons[i].Pressed()
		s.debounce[i] = d
	}
}

// Tick は1サイクル分の入力を処理し、発行すべきHIDコマンドを返す。
// ボタンとモードの更新は必ず軸の処理より先に行われる。
func (s *State) Tick(in Snapshot) []Command {
	var cmds []Command
	prev := s.currentMode

	var levels [NumButtons]bool
	for i, raw := range in.Buttons {
		levels[i] = s.debounce[i].Filter(raw)
	}
	s.heldLevel = levels

	// ボタン1: マウスボタンをそのまま押す・離す
	switch s.buttons[Button1].Update(levels[Button1]) {
	case EdgePressed:
		cmds = append(cmds, buttonPress(s.settings.PrimaryButton))
	case EdgeReleased:
		cmds = append(cmds, buttonRelease(s.settings.PrimaryButton))
	}

	// ボタン2: モード切り替え
	if s.buttons[Button2].Update(levels[Button2]) == EdgePressed {
		s.toggleMode()
	}

	// ボタン3: ESCキー
	if s.buttons[Button3].Update(levels[Button3]) == EdgePressed {
		cmds = append(cmds, keyWrite(s.settings.EscapeKey))
	}

	// ジョイスティックの押し込み: 押している間はZOOM、短押しで全体表示
	switch s.buttons[Click].Update(levels[Click]) {
	case EdgePressed:
		s.press.Press(in.Now)
		s.currentMode = ModeZoom
	case EdgeReleased:
		if short, ok := s.press.Release(in.Now, s.settings.LongPress); ok {
			s.currentMode = s.defaultMode
			if short {
				cmds = append(cmds, keyWrite(s.settings.FitViewKey))
			}
		}
	}

	if s.currentMode != prev {
		cmds = s.releaseHeld(prev, cmds)
	}

	return s.dispatch(in.Axis, cmds)
}

// toggleMode は既定モードを巡回順の次へ進める
func (s *State) toggleMode() {
	cycle := s.settings.Cycle
	next := cycle[0]
	for i, m := range cycle {
		if m == s.defaultMode {
			next = cycle[(i+1)%len(cycle)]
			break
		}
	}
	s.defaultMode = next
	if !s.press.Armed() {
		s.currentMode = next
	}
}

// dispatch は現在のモードに従って軸の値をコマンドに変換する
func (s *State) dispatch(axis AxisSample, cmds []Command) []Command {
	mode := s.currentMode
	ms := s.settings.Modes[mode]
	h, v := filterAxes(axis, ms.Threshold, ms.Sensitivity)

	sign := int32(-1)
	if s.settings.Invert {
		sign = 1
	}

	switch mode {
	case ModeNormal:
		if h != 0 || v != 0 {
			cmds = append(cmds, Move(sign*h, sign*v, 0))
		}

	case ModePan, ModeRotate:
		if h != 0 || v != 0 {
			if !s.moved[mode] {
				if mode == ModeRotate {
					cmds = append(cmds, keyPress(s.settings.RotateModifier))
				}
				cmds = append(cmds, buttonPress(s.settings.PanButton))
				s.moved[mode] = true
			}
			cmds = append(cmds, Move(sign*h, sign*v, 0))
		} else {
			cmds = s.releaseHeld(mode, cmds)
		}

	case ModeZoom:
		// 押すとズームイン、引くとズームアウトになるよう符号を逆にする
		if v != 0 {
			cmds = append(cmds, Move(0, 0, -sign*v))
			s.moved[mode] = true
		}
		if h == 0 && v == 0 {
			cmds = s.releaseHeld(mode, cmds)
		}
	}
	return cmds
}

// releaseHeld はモードが押し続けているボタンとキーを一度だけ離す
func (s *State) releaseHeld(mode Mode, cmds []Command) []Command {
	if !s.moved[mode] {
		return cmds
	}
	s.moved[mode] = false
	switch mode {
	case ModePan:
		cmds = append(cmds, buttonRelease(s.settings.PanButton))
	case ModeRotate:
		cmds = append(cmds, keyRelease(s.settings.RotateModifier), buttonRelease(s.settings.PanButton))
	}
	return cmds
}

// Reconfigure は新しい設定を適用する。
// 古い設定で押し続けているボタンとキーを離すコマンドを返す。
func (s *State) Reconfigure(settings Settings) []Command {
	cmds := s.Release()
	s.settings = settings

	inCycle := false
	for _, m := range settings.Cycle {
		if m == s.defaultMode {
			inCycle = true
			break
		}
	}
	if !inCycle {
		s.defaultMode = settings.StartMode
		if !s.press.Armed() {
			s.currentMode = s.defaultMode
		}
	}
	s.resetDebounce()
	return cmds
}

// Release は押し続けているボタンとキーをすべて離すコマンドを返す。
// 終了時に使う。
func (s *State) Release() []Command {
	var cmds []Command
	for _, m := range []Mode{ModePan, ModeRotate, ModeZoom} {
		cmds = s.releaseHeld(m, cmds)
	}
	if s.buttons[Button1].Pressed() {
		cmds = append(cmds, buttonRelease(s.settings.PrimaryButton))
		s.buttons[Button1] = ButtonState{}
	}
	// デバウンスの確定レベルをラッチに合わせる。古いレベルが残ると再接続後に押下と誤認する
	s.resetDebounce()
	return cmds
}

// Delay は現在のモードでの1サイクルの待ち時間
func (s *State) Delay() time.Duration {
	return s.settings.Modes[s.currentMode].Delay
}

func (s *State) DefaultMode() Mode { return s.defaultMode }
func (s *State) CurrentMode() Mode { return s.currentMode }

// Status は現在の状態のコピーを返す
func (s *State) Status() Status {
	return Status{
		DefaultMode: s.defaultMode,
		CurrentMode: s.currentMode,
		Buttons:     s.heldLevel,
		Moving:      s.moved[s.currentMode],
	}
}
