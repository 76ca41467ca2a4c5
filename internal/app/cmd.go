package app

import "fmt"

// Command はtaskhubのサブコマンド。
type Command string

const (
	// CommandServe はAPIサーバーを起動する。引数が無い場合の既定。
	CommandServe Command = "serve"
	// CommandMigrate はスキーマのマイグレーションを適用または1段戻す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーの /health を確認する。distrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

// MigrateDirection はmigrateサブコマンドの適用方向。
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Invocation はコマンドライン引数を解析した結果。
type Invocation struct {
	Command   Command
	Direction MigrateDirection
}

// ParseArgs はos.Args[1:]を解析する。
// 引数が無ければserve。不明なサブコマンドや適用方向はエラーにする。
func ParseArgs(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{Command: CommandServe}, nil
	}

	switch Command(args[0]) {
	case CommandServe, CommandHealthcheck:
		return Invocation{Command: Command(args[0])}, nil
	case CommandMigrate:
		inv := Invocation{Command: CommandMigrate, Direction: MigrateUp}
		if len(args) > 1 {
			switch dir := MigrateDirection(args[1]); dir {
			case MigrateUp, MigrateDown:
				inv.Direction = dir
			default:
				return Invocation{}, fmt.Errorf("unknown migrate direction %q (want up or down)", args[1])
			}
		}
		return inv, nil
	default:
		return Invocation{}, fmt.Errorf("unknown command %q (want serve, migrate or healthcheck)", args[0])
	}
}
