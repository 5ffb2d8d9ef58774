package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"

	"github.com/growforge/planmesh/tool"
)

// Tools implements Handle. The bindings cover navigation, mouse/keyboard
// control and page inspection; every binding runs under the handle's
// per-action timeout so a hung page cannot stall a step forever.
func (h *chromeHandle) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool(
			"navigate",
			"Navigate the browser to a URL.",
			objectSchema(map[string]any{
				"url": map[string]any{"type": "string", "description": "The URL to open"},
			}, "url"),
			func(_ context.Context, args map[string]any) (any, error) {
				url, _ := args["url"].(string)
				if err := h.run(chromedp.Navigate(url)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Navigated to %s", url), nil
			},
		),
		tool.NewFunctionTool(
			"click",
			"Click the element matching a CSS selector.",
			objectSchema(map[string]any{
				"selector": map[string]any{"type": "string", "description": "CSS selector of the target element"},
			}, "selector"),
			func(_ context.Context, args map[string]any) (any, error) {
				sel, _ := args["selector"].(string)
				if err := h.run(chromedp.Click(sel, chromedp.ByQuery)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Clicked %s", sel), nil
			},
		),
		tool.NewFunctionTool(
			"type_text",
			"Type text into the element matching a CSS selector.",
			objectSchema(map[string]any{
				"selector": map[string]any{"type": "string", "description": "CSS selector of the input"},
				"text":     map[string]any{"type": "string", "description": "Text to type"},
			}, "selector", "text"),
			func(_ context.Context, args map[string]any) (any, error) {
				sel, _ := args["selector"].(string)
				text, _ := args["text"].(string)
				if err := h.run(chromedp.SendKeys(sel, text, chromedp.ByQuery)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Typed text into %s", sel), nil
			},
		),
		tool.NewFunctionTool(
			"press_key",
			"Send a keyboard event (e.g. Enter, Tab, Escape) to the page.",
			objectSchema(map[string]any{
				"key": map[string]any{"type": "string", "description": "Key to press"},
			}, "key"),
			func(_ context.Context, args map[string]any) (any, error) {
				key, _ := args["key"].(string)
				if err := h.run(chromedp.KeyEvent(key)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Pressed %s", key), nil
			},
		),
		tool.NewFunctionTool(
			"scroll",
			"Scroll an element into view, or to the bottom of the page when no selector is given.",
			objectSchema(map[string]any{
				"selector": map[string]any{"type": "string", "description": "Optional CSS selector to scroll to"},
			}),
			func(_ context.Context, args map[string]any) (any, error) {
				if sel, _ := args["selector"].(string); sel != "" {
					if err := h.run(chromedp.ScrollIntoView(sel, chromedp.ByQuery)); err != nil {
						return nil, err
					}
					return fmt.Sprintf("Scrolled to %s", sel), nil
				}
				if err := h.run(chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil)); err != nil {
					return nil, err
				}
				return "Scrolled to bottom", nil
			},
		),
		tool.NewFunctionTool(
			"wait_for",
			"Wait until an element is visible, or sleep for a number of seconds.",
			objectSchema(map[string]any{
				"selector":     map[string]any{"type": "string", "description": "CSS selector to wait for"},
				"wait_seconds": map[string]any{"type": "integer", "description": "Seconds to sleep when no selector is given"},
			}),
			func(_ context.Context, args map[string]any) (any, error) {
				if sel, _ := args["selector"].(string); sel != "" {
					if err := h.run(chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
						return nil, err
					}
					return fmt.Sprintf("Element %s is visible", sel), nil
				}
				secs := intArg(args, "wait_seconds")
				if secs <= 0 {
					return "Nothing to wait for", nil
				}
				if err := h.run(chromedp.Sleep(time.Duration(secs) * time.Second)); err != nil {
					return nil, err
				}
				return fmt.Sprintf("Waited %d seconds", secs), nil
			},
		),
		tool.NewFunctionTool(
			"read_page",
			"Read the current page HTML (truncated for large pages).",
			objectSchema(map[string]any{}),
			func(_ context.Context, _ map[string]any) (any, error) {
				var html string
				err := h.run(chromedp.ActionFunc(func(ctx context.Context) error {
					node, err := dom.GetDocument().Do(ctx)
					if err != nil {
						return err
					}
					html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
					return err
				}))
				if err != nil {
					return nil, err
				}
				if len(html) > h.opts.ContentLimit {
					html = html[:h.opts.ContentLimit] + "\n... (truncated)"
				}
				return html, nil
			},
		),
		tool.NewFunctionTool(
			"go_back",
			"Navigate back in the browser history.",
			objectSchema(map[string]any{}),
			func(_ context.Context, _ map[string]any) (any, error) {
				if err := h.run(chromedp.NavigateBack()); err != nil {
					return nil, err
				}
				return "Navigated back", nil
			},
		),
		tool.NewFunctionTool(
			"reload",
			"Reload the current page.",
			objectSchema(map[string]any{}),
			func(_ context.Context, _ map[string]any) (any, error) {
				if err := h.run(chromedp.Reload()); err != nil {
					return nil, err
				}
				return "Page reloaded", nil
			},
		),
		tool.NewFunctionTool(
			"screenshot",
			"Capture a screenshot of the current page, returned as base64 PNG.",
			objectSchema(map[string]any{}),
			func(_ context.Context, _ map[string]any) (any, error) {
				var buf []byte
				if err := h.run(chromedp.CaptureScreenshot(&buf)); err != nil {
					return nil, err
				}
				return base64.StdEncoding.EncodeToString(buf), nil
			},
		),
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
