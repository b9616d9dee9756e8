package main

// Compiled-in modules register themselves with the core registry.
import (
	_ "github.com/flemzord/mategen/internal/gateway"
	_ "github.com/flemzord/mategen/modules/provider/openai"
	_ "github.com/flemzord/mategen/modules/store/drive"
	_ "github.com/flemzord/mategen/modules/store/local"
	_ "github.com/flemzord/mategen/modules/store/sqlite"
	_ "github.com/flemzord/mategen/modules/telemetry/tracing"
	_ "github.com/flemzord/mategen/modules/tool/mcp"
	_ "github.com/flemzord/mategen/modules/tool/python"
	_ "github.com/flemzord/mategen/modules/tool/sqlquery"
)
