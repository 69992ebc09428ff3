package mcp

import "github.com/mark3labs/mcp-go/mcp"

var resolveToolDef = mcp.NewTool("post_resolve",
	mcp.WithDescription("Resolve a post id or URL to plain text. Posts that open a thread are joined with the author's replies in order."),
	mcp.WithString("post", mcp.Required(), mcp.Description("Post id or status URL")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var remixToolDef = mcp.NewTool("content_remix",
	mcp.WithDescription("Rewrite source text as tweets or a blog post. Source is input_text, a resolved post_url, or both."),
	mcp.WithString("output_type", mcp.Required(), mcp.Enum("tweets", "blog")),
	mcp.WithString("input_text", mcp.Description("Source text")),
	mcp.WithString("post_url", mcp.Description("Post whose thread text is prepended to input_text")),
	mcp.WithBoolean("save", mcp.Description("Store the parsed output as saved items")),
)

var pdfToolDef = mcp.NewTool("pdf_extract",
	mcp.WithDescription("Extract the text of a base64 encoded PDF."),
	mcp.WithString("base64_file", mcp.Required(), mcp.Description("PDF bytes, base64 or data URL")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var storeToolDef = mcp.NewTool("saved_store",
	mcp.WithDescription("Save a tweet or blog post."),
	mcp.WithString("content", mcp.Required()),
	mcp.WithBoolean("is_thread"),
	mcp.WithNumber("thread_position", mcp.Description("1-based position, threads only")),
	mcp.WithString("title"),
	mcp.WithString("kind", mcp.Enum("tweets", "blog")),
	mcp.WithString("source_url"),
)

var listToolDef = mcp.NewTool("saved_list",
	mcp.WithDescription("List saved items, newest first."),
	mcp.WithNumber("limit", mcp.Description("Default 20, max 100")),
	mcp.WithNumber("offset"),
	mcp.WithReadOnlyHintAnnotation(true),
)

var fetchToolDef = mcp.NewTool("saved_fetch",
	mcp.WithDescription("Fetch one saved item with its full content."),
	mcp.WithString("id", mcp.Required()),
	mcp.WithReadOnlyHintAnnotation(true),
)

var updateToolDef = mcp.NewTool("saved_update",
	mcp.WithDescription("Update fields of a saved item. thread_position 0 clears it."),
	mcp.WithString("id", mcp.Required()),
	mcp.WithString("content"),
	mcp.WithBoolean("is_thread"),
	mcp.WithNumber("thread_position"),
	mcp.WithString("title"),
)

var deleteToolDef = mcp.NewTool("saved_delete",
	mcp.WithDescription("Delete a saved item."),
	mcp.WithString("id", mcp.Required()),
	mcp.WithDestructiveHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("saved_export",
	mcp.WithDescription("Export all saved items to a JSONL file. Defaults to the exports directory."),
	mcp.WithString("path"),
)

var importToolDef = mcp.NewTool("saved_import",
	mcp.WithDescription("Import saved items from a JSONL export."),
	mcp.WithString("path", mcp.Required()),
	mcp.WithString("mode", mcp.Enum("error", "replace", "rename"), mcp.Description("Collision handling, default error")),
)
