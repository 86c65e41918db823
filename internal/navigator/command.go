package navigator

import "fmt"

// CommandKind は出力コマンドの種類
type CommandKind int

const (
	CmdMove          CommandKind = iota // 相対移動（DX, DY, Wheel）
	CmdButtonPress                      // マウスボタンを押したままにする
	CmdButtonRelease                    // マウスボタンを離す
	CmdKeyPress                         // キーを押したままにする
	CmdKeyRelease                       // キーを離す
	CmdKeyWrite                         // キーを押してすぐ離す
)

// Command は1回分のHID出力
type Command struct {
	Kind  CommandKind
	DX    int32
	DY    int32
	Wheel int32
	Code  uint16 // ボタンまたはキーのイベントコード
}

func (c Command) String() string {
	switch c.Kind {
	case CmdMove:
		return fmt.Sprintf("move(%d,%d,%d)", c.DX, c.DY, c.Wheel)
	case CmdButtonPress:
		return fmt.Sprintf("button-press(%#x)", c.Code)
	case CmdButtonRelease:
		return fmt.Sprintf("button-release(%#x)", c.Code)
	case CmdKeyPress:
		return fmt.Sprintf("key-press(%d)", c.Code)
	case CmdKeyRelease:
		return fmt.Sprintf("key-release(%d)", c.Code)
	case CmdKeyWrite:
		return fmt.Sprintf("key-write(%d)", c.Code)
	}
	return fmt.Sprintf("Command(%d)", int(c.Kind))
}

// Move は相対移動コマンドを作る
func Move(dx, dy, wheel int32) Command {
	return Command{Kind: CmdMove, DX: dx, DY: dy, Wheel: wheel}
}

func buttonPress(code uint16) Command   { return Command{Kind: CmdButtonPress, Code: code} }
func buttonRelease(code uint16) Command { return Command{Kind: CmdButtonRelease, Code: code} }
func keyPress(code uint16) Command      { return Command{Kind: CmdKeyPress, Code: code} }
func keyRelease(code uint16) Command    { return Command{Kind: CmdKeyRelease, Code: code} }
func keyWrite(code uint16) Command      { return Command{Kind: CmdKeyWrite, Code: code} }
