package patterns

func builtins() []Pattern {
	return []Pattern{
		// Shell prompts, tested against the last non-empty line only.
		{Name: "posix", Kind: KindPrompt, Expr: `[$#]\s*$`},
		{Name: "zsh", Kind: KindPrompt, Expr: `^\S*[A-Za-z]\S*\s?%\s*$`},
		{Name: "cmd", Kind: KindPrompt, Expr: `^[A-Za-z]:\\[^<>|"]*>\s*$`},
		{Name: "powershell", Kind: KindPrompt, Expr: `^PS [^>]*>\s*$`},
		{Name: "decorated", Kind: KindPrompt, Expr: `^\s*[➜❯→»λ](?:\s+\S+){0,6}\s*$`},
		{Name: "braille", Kind: KindPrompt, Expr: `^\s*[\x{2800}-\x{28FF}]+\s+[~/]\S*\s*[$#%>❯➜]?\s*$`},

		// Agent activity, matched anywhere.
		{Name: "box_corner", Kind: KindAgent, Expr: `[╭╮╰╯]`},
		{Name: "tool_call", Kind: KindAgent, Expr: `[⏺●]\s*(?:Read|Write|Edit|MultiEdit|Update|Bash|Grep|Glob|Search|LS|WebFetch|WebSearch|Task|TodoWrite|NotebookEdit|Create)\(`},
		{Name: "tool_result", Kind: KindAgent, Expr: `⎿`},
		{Name: "interrupt_hint", Kind: KindAgent, Expr: `(?i)esc to interrupt`},
		{Name: "spinner", Kind: KindAgent, Expr: `(?m)^\s*[✻✽✶✢✳]\s+[A-Z][a-z]+(?:…|\.\.\.)`},
		{Name: "product", Kind: KindAgent, Expr: `(?i)\bclaude(?: code)?\b`},
		{Name: "vendor", Kind: KindAgent, Expr: `(?i)\banthropic\b`},

		// Tool labels.
		{Name: "read", Kind: KindTool, Tool: ToolRead, Expr: `\bRead\(([^)]*)\)`},
		{Name: "write", Kind: KindTool, Tool: ToolWrite, Expr: `\bWrite\(([^)]*)\)`},
		{Name: "edit", Kind: KindTool, Tool: ToolEdit, Expr: `\b(?:MultiEdit|Edit|Update)\(([^)]*)\)`},
		{Name: "search", Kind: KindTool, Tool: ToolSearch, Expr: `\b(?:Grep|Glob|Search|WebSearch)\(([^)]*)\)`},
		{Name: "execute", Kind: KindTool, Tool: ToolExecute, Expr: `\bBash\(([^)]*)\)`},
		{Name: "create", Kind: KindTool, Tool: ToolCreate, Expr: `(?:\bCreate\(([^)]*)\)|(?i)\bcreated\s+file\s+(\S+))`},

		// Commands that start the agent CLI.
		{Name: "claude_cli", Kind: KindLaunch, Expr: `^(?:[A-Z_][A-Z0-9_]*=\S*\s+)*(?:\S*/)?claude(?:\s|$)`},
		{Name: "claude_npx", Kind: KindLaunch, Expr: `^(?:[A-Z_][A-Z0-9_]*=\S*\s+)*npx\s+(?:-y\s+)?@anthropic-ai/claude-code(?:@\S+)?(?:\s|$)`},
	}
}
