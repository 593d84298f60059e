package web

import (
	"html/template"
	"io"

	"libdb.so/strobbie/internal/led"
	"libdb.so/strobbie/internal/pattern"
)

// MaxColorsMessage is shown next to the disabled add button.
const MaxColorsMessage = "* Max colors reached."

var actionLabels = map[pattern.Name]string{
	pattern.AllOffName:              "Lights Off",
	pattern.SolidName:               "Solid Color Light",
	pattern.FlashingName:            "Flashing Color",
	pattern.OneDirectionChaseName:   "One Direction Chase",
	pattern.BackAndForthChaseName:   "Back & Forth Chase",
	pattern.InwardChevronChaseName:  "Inward Chevron Chase",
	pattern.RotatingColorFadeName:   "Rotating Color Fade",
	pattern.TrainChaseName:          "Train Chase",
	pattern.OutwardChevronChaseName: "Outward Chevron Chase",
}

func actionLabel(name pattern.Name) string {
	if label, ok := actionLabels[name]; ok {
		return label
	}
	return string(name)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.DeviceName}}</title>
</head>
<body>
<h1>Strobbie V{{.Version}}</h1>
{{- if .DeviceName}}
<p>{{.DeviceName}}</p>
{{- end}}
{{- if .Error}}
<p class="error"><strong>{{.Error}}</strong></p>
{{- end}}
<form action="/" method="post">
<label for="action">Action:</label>
<select id="action" name="action">
{{- range .Actions}}
<option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>
<br />
<label for="changeDelay">Change delay in millis:</label>
<input type="number" id="changeDelay" name="changeDelay" min="0" value="{{.Delay}}"><br />
Add another color to action:
<button type="submit" name="do" value="add"{{if .AtCapacity}} disabled{{end}}>Add</button>{{if .AtCapacity}} {{.MaxColorsMessage}}{{end}}
<hr />
{{- range .Colors}}
<p>
<label for="selectColor{{.Index}}">Color #{{.Index}}:</label>
<input type="color" id="selectColor{{.Index}}" name="selectColor{{.Index}}" value="#{{.Hex}}">
<button type="submit" name="do" value="remove:{{.Index}}"{{if not .Removable}} disabled{{end}}>Remove</button>
</p>
<hr />
{{- end}}
<br /><br /><button type="submit" name="do" value="update">Update</button>
</form>
</body>
</html>
`))

type pageData struct {
	Version          string
	DeviceName       string
	Error            string
	Actions          []actionOption
	Delay            uint32
	Colors           []colorOption
	AtCapacity       bool
	MaxColorsMessage string
}

type actionOption struct {
	Name     pattern.Name
	Label    string
	Selected bool
}

type colorOption struct {
	Index     int
	Hex       string
	Removable bool
}

func renderPage(w io.Writer, s *Server, d draft, errMsg string) error {
	data := pageData{
		Version:          s.opts.Version,
		DeviceName:       s.opts.DeviceName,
		Error:            errMsg,
		Delay:            d.Delay,
		AtCapacity:       len(d.Colors) >= led.MaxColors,
		MaxColorsMessage: MaxColorsMessage,
	}

	for _, name := range s.ctrl.Actions() {
		data.Actions = append(data.Actions, actionOption{
			Name:     name,
			Label:    actionLabel(name),
			Selected: name == d.Action,
		})
	}

	for i, c := range d.Colors {
		data.Colors = append(data.Colors, colorOption{
			Index:     i,
			Hex:       c.Hex(),
			Removable: i > 0,
		})
	}

	return pageTemplate.Execute(w, data)
}
