package api

const docsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="referrer" content="same-origin" />
  <meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no" />
  <title>tabrestore API</title>
  <link href="https://unpkg.com/@stoplight/elements@9.0.0/styles.min.css" rel="stylesheet" />
  <script src="https://unpkg.com/@stoplight/elements@9.0.0/web-components.min.js" crossorigin="anonymous"></script>
</head>
<body style="height: 100vh; margin: 0; position: relative;">
  <a href="/docs/stream" style="
    position: fixed;
    top: 12px;
    right: 16px;
    z-index: 9999;
    background: #161b22;
    border: 1px solid #30363d;
    border-radius: 6px;
    color: #58a6ff;
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    font-size: 12px;
    font-weight: 500;
    padding: 5px 12px;
    text-decoration: none;
  ">Bridge &amp; Stream Docs →</a>
  <elements-api
    apiDescriptionUrl="/openapi.json"
    router="hash"
    layout="sidebar"
    tryItCredentialsPolicy="same-origin"
    darkMode
  />
</body>
</html>`


const streamDocsHTML = `<!doctype html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>tabrestore: Bridge &amp; Decision Stream</title>
  <style>
    :root {
      --bg: #0d1117;
      --surface: #161b22;
      --border: #30363d;
      --text: #c9d1d9;
      --muted: #8b949e;
      --accent: #58a6ff;
      --green: #3fb950;
      --orange: #d29922;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      font-size: 14px;
      line-height: 1.6;
    }
    main { max-width: 880px; margin: 0 auto; padding: 32px 24px 64px; }
    a { color: var(--accent); text-decoration: none; }
    h1 { font-size: 24px; margin: 0 0 4px; }
    h2 { font-size: 18px; margin: 36px 0 8px; padding-bottom: 6px; border-bottom: 1px solid var(--border); }
    h3 { font-size: 14px; margin: 20px 0 6px; color: var(--accent); }
    p.sub { color: var(--muted); margin: 0 0 24px; }
    code { font-family: ui-monospace, SFMono-Regular, Menlo, monospace; font-size: 12px; }
    pre {
      background: var(--surface);
      border: 1px solid var(--border);
      border-radius: 6px;
      padding: 12px 14px;
      overflow-x: auto;
    }
    table { width: 100%; border-collapse: collapse; margin: 8px 0; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); vertical-align: top; }
    th { color: var(--muted); font-weight: 500; }
    .pill {
      display: inline-block;
      border-radius: 10px;
      padding: 0 8px;
      font-size: 11px;
      font-weight: 600;
    }
    .cmd { background: rgba(88,166,255,.15); color: var(--accent); }
    .evt { background: rgba(63,185,80,.15); color: var(--green); }
    .out { background: rgba(210,153,34,.15); color: var(--orange); }
  </style>
</head>
<body>
<main>
  <h1>Bridge &amp; Decision Stream</h1>
  <p class="sub"><a href="/docs">&larr; REST API reference</a></p>

  <h2>Extension bridge</h2>
  <p>The companion browser extension connects to <code>ws://HOST:PORT/bridge</code>.
  Every frame is a single JSON text message. Only one extension session is active at a
  time; a new connection replaces the previous one.</p>
  <pre><code>{"id": 7, "method": "tabs.get", "params": {"tabId": 42}}
{"id": 7, "result": {"id": 42, "windowId": 1, "index": 3, "url": "https://example.com"}}
{"id": 8, "error": {"code": "NO_TAB", "message": "No tab with id: 99"}}
{"method": "tabs.onRemoved", "params": {"tabId": 42, "removeInfo": {"windowId": 1, "isWindowClosing": false}}}</code></pre>

  <h3>Commands (daemon &rarr; extension)</h3>
  <table>
    <tr><th>Method</th><th>Params</th><th>Result</th></tr>
    <tr><td><span class="pill cmd">tabs.query</span></td><td><code>{active?, windowId?}</code></td><td>array of tabs</td></tr>
    <tr><td><span class="pill cmd">tabs.get</span></td><td><code>{tabId}</code></td><td>tab</td></tr>
    <tr><td><span class="pill cmd">tabs.move</span></td><td><code>{tabId, index}</code></td><td>tab</td></tr>
  </table>

  <h3>Events (extension &rarr; daemon)</h3>
  <table>
    <tr><th>Method</th><th>Params</th></tr>
    <tr><td><span class="pill evt">bridge.hello</span></td><td><code>{extensionId, version}</code></td></tr>
    <tr><td><span class="pill evt">bridge.ping</span></td><td>none, keepalive</td></tr>
    <tr><td><span class="pill evt">tabs.onActivated</span></td><td><code>{tabId, windowId}</code></td></tr>
    <tr><td><span class="pill evt">tabs.onUpdated</span></td><td><code>{tabId, changeInfo, tab}</code></td></tr>
    <tr><td><span class="pill evt">tabs.onRemoved</span></td><td><code>{tabId, removeInfo: {windowId, isWindowClosing}}</code></td></tr>
    <tr><td><span class="pill evt">tabs.onCreated</span></td><td><code>{tab}</code></td></tr>
  </table>

  <h2>Decision stream</h2>
  <p><code>GET /api/v1/decisions/stream</code> is a Server-Sent Events feed of every
  placement decision and every state change. A comment line <code>: ping</code> is sent
  every 15 seconds.</p>
  <table>
    <tr><th>Query</th><th>Meaning</th></tr>
    <tr><td><code>types</code></td><td>comma list of <code>decision</code>, <code>state</code></td></tr>
    <tr><td><code>outcomes</code></td><td>comma list of decision outcomes to keep</td></tr>
  </table>
  <pre><code>event: decision
data: {"id":"6f1c2a8e-3b4d-4e0f-9a7c-1d2e3f405162","outcome":"restore","tab_id":42,"window_id":1,"url":"https://example.com","moved":true,"index":3,"at":"2025-03-14T09:00:00Z"}

event: state
data: {"event":"removed","stats":{"windows":1,"cached":12,"closed":1}}</code></pre>

  <h3>Outcomes</h3>
  <table>
    <tr><th>Outcome</th><th>Placement</th></tr>
    <tr><td><span class="pill out">restore</span></td><td>reopened a tab closed in the same window under 10s ago; moved to its old index</td></tr>
    <tr><td><span class="pill out">placeholder</span></td><td>no committed URL yet, or a new-tab page; moved right of the active tab at once</td></tr>
    <tr><td><span class="pill out">opened_from_active</span></td><td>opened from another tab; moved right of the active tab after the settle delay</td></tr>
    <tr><td><span class="pill out">ambient</span></td><td>no restore and no opener; left where the browser put it</td></tr>
    <tr><td><span class="pill out">skipped_self</span></td><td>the new tab is already the active tab</td></tr>
    <tr><td><span class="pill out">lost_race</span></td><td>the tab closed before the settle delay elapsed</td></tr>
    <tr><td><span class="pill out">no_active_tab</span></td><td>the window has no active tab to place beside</td></tr>
  </table>
</main>
</body>
</html>`
