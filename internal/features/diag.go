package features

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/tarm/serial"

	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// デバッグ出力の形式
const (
	DiagText = "text" // 人が読むためのテキスト
	DiagCBOR = "cbor" // ホスト側ツール向けのCBORフレーム
)

// statusFrame はCBOR形式で送る1回分の状態
type statusFrame struct {
	Buttons     [navigator.NumButtons]bool `cbor:"1,keyasint"`
	DefaultMode string                     `cbor:"2,keyasint"`
	CurrentMode string                     `cbor:"3,keyasint"`
	Moving      bool                       `cbor:"4,keyasint"`
}

// Diagnostics はボタンのレベルとモードを書き出すデバッグ用の出力先
type Diagnostics struct {
	w      io.Writer
	format string
	last   []byte
}

// NewDiagnostics は w に format 形式で書き出すDiagnosticsを作成する
func NewDiagnostics(w io.Writer, format string) (*Diagnostics, error) {
	switch format {
	case DiagText, DiagCBOR:
	default:
		return nil, fmt.Errorf("unknown diagnostics format %q", format)
	}
	return &Diagnostics{w: w, format: format}, nil
}

// OpenSerialDiagnostics はシリアルポートに書き出すDiagnosticsを作成する
func OpenSerialDiagnostics(port string, baud int, format string) (*Diagnostics, io.Closer, error) {
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	d, err := NewDiagnostics(p, format)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return d, p, nil
}

// Report は状態を書き出す。前回と同じ内容なら何もしない
func (d *Diagnostics) Report(st navigator.Status) error {
	var (
		out []byte
		err error
	)
	if d.format == DiagCBOR {
		out, err = cbor.Marshal(statusFrame{
			Buttons:     st.Buttons,
			DefaultMode: st.DefaultMode.String(),
			CurrentMode: st.CurrentMode.String(),
			Moving:      st.Moving,
		})
		if err != nil {
			return err
		}
	} else {
		out = []byte(formatStatus(st))
	}

	if bytes.Equal(out, d.last) {
		return nil
	}
	d.last = out
	_, err = d.w.Write(out)
	return err
}

func formatStatus(st navigator.Status) string {
	var b strings.Builder
	for i, pressed := range st.Buttons {
		level := 0
		if pressed {
			level = 1
		}
		fmt.Fprintf(&b, "%s: %d\n", navigator.Button(i), level)
	}
	fmt.Fprintf(&b, "Default mode: %s\n", st.DefaultMode)
	fmt.Fprintf(&b, "Mode: %s\n\n", st.CurrentMode)
	return b.String()
}
