package bridge

import (
	"github.com/tabbridge/bridge/internal/actions"
	bridgeerrors "github.com/tabbridge/bridge/internal/errors"
)

// registerActions exposes every tab operation to the host under its
// action name. Handlers read loosely typed argument maps because hosts
// deliver macro parameters as decoded JSON.
func registerActions(host Host, acts *actions.Actions) {
	host.RegisterAction(actions.NameNewTab, func(args map[string]any) error {
		acts.NewTab(
			stringArg(args, "url"),
			boolArg(args, "active"),
			boolArg(args, "pinned"),
			intArg(args, "target"),
			intArg(args, "index"),
		)
		return nil
	})

	host.RegisterAction(actions.NameUpdateTab, func(args map[string]any) error {
		acts.UpdateTab(
			stringArg(args, "url"),
			boolArg(args, "active"),
			boolArg(args, "pinned"),
			boolArg(args, "muted"),
			intArg(args, "target"),
			intArg(args, "index"),
		)
		return nil
	})

	host.RegisterAction(actions.NameReloadTab, func(args map[string]any) error {
		acts.ReloadTab(
			intArg(args, "target"),
			intArg(args, "index"),
			boolArg(args, "bypasscache"),
		)
		return nil
	})

	host.RegisterAction(actions.NameMoveTab, func(args map[string]any) error {
		acts.MoveTab(
			intArg(args, "target"),
			intArg(args, "startindex"),
			intArg(args, "endindex"),
		)
		return nil
	})

	host.RegisterAction(actions.NameRemoveTab, func(args map[string]any) error {
		acts.RemoveTab(intArg(args, "target"), intArg(args, "index"))
		return nil
	})

	host.RegisterAction(actions.NameQueryActiveTab, func(args map[string]any) error {
		acts.QueryActiveTab()
		return nil
	})

	host.RegisterAction(actions.NameQueryTabByIndex, func(args map[string]any) error {
		acts.QueryTabByIndex(intArg(args, "index"))
		return nil
	})

	host.RegisterAction(actions.NameQueryTab, func(args map[string]any) error {
		acts.QueryTab(stringArg(args, "url"))
		return nil
	})

	host.RegisterAction(actions.NameSendMessage, func(args map[string]any) error {
		msg := stringArg(args, "message")
		if msg == "" {
			return bridgeerrors.New(bridgeerrors.CodeProtocolMissingField, "SendMessage requires a message")
		}
		acts.SendMessage(msg)
		return nil
	})
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// intArg accepts both int and float64 because JSON-decoded maps carry
// numbers as float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
