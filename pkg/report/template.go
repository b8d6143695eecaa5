package report

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} · ArcGIS Patch Browser</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: #f5f5f5;
            color: #333;
            line-height: 1.6;
        }

        #app {
            max-width: 1400px;
            margin: 0 auto;
            padding: 20px;
        }

        header {
            background: white;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 20px;
        }

        header h1 {
            font-size: 24px;
            color: #2c3e50;
        }

        header p, .muted {
            font-size: 14px;
            color: #7f8c8d;
        }

        nav a {
            margin-left: 15px;
            color: #2c3e50;
            text-decoration: none;
            font-weight: 600;
        }

        nav a.active {
            border-bottom: 2px solid #2B9AF3;
        }

        .dashboard {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(260px, 1fr));
            gap: 15px;
            margin-bottom: 20px;
        }

        .metric-card {
            background: white;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            text-align: center;
            color: inherit;
            text-decoration: none;
        }

        .metric-value {
            font-size: 32px;
            font-weight: bold;
            color: #2c3e50;
        }

        .metric-label {
            font-size: 14px;
            color: #7f8c8d;
        }

        .metric-card.error .metric-label {
            color: #C9190B;
        }

        .toolbar {
            background: white;
            padding: 15px 20px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            display: flex;
            flex-wrap: wrap;
            gap: 10px;
            align-items: center;
            margin-bottom: 15px;
        }

        .toolbar input, .toolbar select, .toolbar button {
            padding: 6px 10px;
            border: 1px solid #ccc;
            border-radius: 4px;
            font-size: 14px;
        }

        .badge {
            display: inline-block;
            padding: 2px 10px;
            border-radius: 12px;
            background: #e7f1fa;
            color: #2c3e50;
            font-size: 13px;
        }

        .status {
            color: #F0AB00;
            font-size: 14px;
            margin-bottom: 10px;
        }

        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
            border-radius: 8px;
            overflow: hidden;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }

        th, td {
            padding: 8px 12px;
            border-bottom: 1px solid #eee;
            text-align: left;
            font-size: 14px;
            vertical-align: top;
        }

        th {
            background: #2c3e50;
            color: white;
            font-weight: 600;
        }

        .nowrap { white-space: nowrap; }
        .wrap { white-space: normal; }
        .secY { color: #C9190B; font-weight: bold; }
        .secN { color: #6A6E73; }

        .actions {
            display: flex;
            flex-wrap: wrap;
            gap: 6px;
        }

        .pill {
            display: inline-block;
            padding: 2px 10px;
            border-radius: 12px;
            font-size: 13px;
            text-decoration: none;
            border: 1px solid #2B9AF3;
            color: #2B9AF3;
        }

        .pill.dl {
            background: #2B9AF3;
            color: white;
        }

        .pill.disabled {
            border-color: #ccc;
            color: #999;
            cursor: not-allowed;
        }

        details summary {
            cursor: pointer;
            font-size: 13px;
            color: #2B9AF3;
        }

        footer {
            margin-top: 20px;
            font-size: 12px;
            color: #7f8c8d;
            text-align: center;
        }
    </style>
</head>
<body>
<div id="app">
    <header>
        <div>
            <h1>{{.Title}}</h1>
            <p>ArcGIS Enterprise patches and installers</p>
        </div>
        <nav>
            <a href="{{.Links.Menu}}"{{if eq .Nav "menu"}} class="active"{{end}}>Menu</a>
            <a href="{{.Links.Patches}}"{{if eq .Nav "patches"}} class="active"{{end}}>Patches</a>
            <a href="{{.Links.Software}}"{{if eq .Nav "software"}} class="active"{{end}}>Software</a>
        </nav>
    </header>
    {{template "content" .}}
    <footer>Generated {{.Generated}}</footer>
</div>
{{if not .Static}}
<script>
    (function () {
        var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
        var ws = new WebSocket(proto + location.host + '/ws');
        ws.onmessage = function (msg) {
            var ev = JSON.parse(msg.data);
            if (ev.type === 'reloaded' && ev.feed === '{{.Feed}}') {
                location.reload();
            }
        };
    })();
</script>
{{end}}
</body>
</html>{{end}}`

const menuTemplate = `{{define "content"}}
<div class="dashboard">
    {{range .Feeds}}
    <a class="metric-card{{if .Error}} error{{end}}" href="{{.Link}}">
        <div class="metric-value">{{thousands .Rows}}</div>
        <div class="metric-label">{{.Label}}</div>
        {{if .Message}}<div class="metric-label">{{.Message}}</div>{{end}}
    </a>
    {{end}}
</div>
{{if .DownloadLink}}
<div class="toolbar">
    <a class="pill dl" href="{{.DownloadLink}}" target="_blank" rel="noopener noreferrer">Open software sheet</a>
</div>
{{end}}
{{end}}`

const patchesTemplate = `{{define "content"}}
{{if not .Static}}
<form class="toolbar" method="get" action="{{.Links.Patches}}">
    <select name="sheet">
        {{range .Sheets}}<option value="{{.Key}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
    </select>
    <input type="search" name="q" placeholder="Search patches" value="{{.Query.Text}}">
    <select name="component">
        <option value="">All components</option>
        {{range .Components}}<option value="{{.}}"{{if eq . $.Query.Component}} selected{{end}}>{{.}}</option>{{end}}
    </select>
    <select name="security">
        <option value="">Security: any</option>
        <option value="Y"{{if eq .Query.Security "Y"}} selected{{end}}>Security: Y</option>
        <option value="N"{{if eq .Query.Security "N"}} selected{{end}}>Security: N</option>
    </select>
    <button type="submit">Filter</button>
</form>
{{end}}
<div class="toolbar">
    <span class="badge">{{.VersionBadge}}</span>
    <span class="badge">Rows: {{thousands .Total}} (rendered {{thousands (len .Rows)}})</span>
</div>
{{if .Status}}<div class="status">{{.Status}}</div>{{end}}
{{if .Truncated}}<div class="status">Showing first {{thousands (len .Rows)}} rows. Refine filters.</div>{{end}}
<table>
    <thead>
        <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
    </thead>
    <tbody>
    {{range .Rows}}
        <tr>
            <td class="nowrap col-date">{{.Released}}</td>
            <td class="nowrap col-component">{{.Component}}</td>
            <td class="nowrap {{if .Security}}secY{{else}}secN{{end}}">{{.SecurityFlag}}</td>
            <td class="wrap col-name">
                {{.PatchName}}
                {{if .Files}}
                <details>
                    <summary>Files ({{.FileCount}})</summary>
                    <div class="actions">
                        {{range .Files}}
                        <a class="pill open" href="{{.}}" target="_blank" rel="noopener noreferrer">Open</a>
                        <a class="pill dl" href="{{.}}" target="_blank" rel="noopener noreferrer" download>Download</a>
                        {{end}}
                        {{if .MoreFiles}}
                        <details>
                            <summary>More ({{len .MoreFiles}})</summary>
                            {{range .MoreFiles}}<div><a href="{{.}}" target="_blank" rel="noopener noreferrer">{{.}}</a></div>{{end}}
                        </details>
                        {{end}}
                    </div>
                </details>
                {{end}}
            </td>
            <td>{{if .SupportURL}}<a class="pill open" href="{{.SupportURL}}" target="_blank" rel="noopener noreferrer">Open support page</a>{{end}}</td>
            <td>
                <div class="actions">
                {{if .DownloadURL}}
                    <a class="pill dl" href="{{.DownloadURL}}" target="_blank" rel="noopener noreferrer" download>Download patch</a>
                {{else}}
                    <span class="pill disabled" title="No direct download URL available in the patch feed">Direct DL N/A</span>
                {{end}}
                </div>
            </td>
        </tr>
    {{end}}
    </tbody>
</table>
{{end}}`

const softwareTemplate = `{{define "content"}}
{{if not .Static}}
<form class="toolbar" method="get" action="{{.Links.Software}}">
    <select name="version">
        <option value="">All versions</option>
        {{range .Versions}}<option value="{{.}}"{{if eq . $.Query.Version}} selected{{end}}>{{.}}</option>{{end}}
    </select>
    <select name="component">
        <option value="">All components</option>
        {{range .Components}}<option value="{{.}}"{{if eq . $.Query.Component}} selected{{end}}>{{.}}</option>{{end}}
    </select>
    <input type="search" name="q" placeholder="Search filenames" value="{{.Query.Text}}">
    <button type="submit">Filter</button>
</form>
{{end}}
<div class="toolbar">
    <span class="badge">{{.VersionBadge}}</span>
    <span class="badge">Items: {{thousands (len .Rows)}}</span>
</div>
{{if .Status}}<div class="status">{{.Status}}</div>{{end}}
<table>
    <thead>
        <tr><th>Version</th><th>Component</th><th>Filename</th><th>Size (GB)</th><th>Links</th></tr>
    </thead>
    <tbody>
    {{range .Rows}}
        <tr>
            <td class="nowrap">{{.DisplayVersion}}</td>
            <td class="nowrap">{{.Component}}</td>
            <td class="wrap">{{.Filename}}</td>
            <td class="nowrap">{{.SizeGB}}</td>
            <td>
                <div class="actions">
                    {{if .ViewURL}}<a class="pill open" href="{{.ViewURL}}" target="_blank" rel="noopener noreferrer">Open</a>{{end}}
                    {{if .DirectURL}}<a class="pill dl" href="{{.DirectURL}}" target="_blank" rel="noopener noreferrer" download>Download</a>{{end}}
                </div>
            </td>
        </tr>
    {{end}}
    </tbody>
</table>
{{end}}`
