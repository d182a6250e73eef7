package fx

import (
	"github.com/wedstudio/pagefeed/internal/repositories/synchistory"
	"go.uber.org/fx"
)

var Module = fx.Options(
	synchistory.Module,
)
