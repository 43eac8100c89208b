package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visionui-beacon/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		el      models.Element
		want    Result
		wantHit bool
	}{
		{
			name:    "store link",
			el:      models.Element{Tag: "a", Href: "/pages/store.html", Text: "Ver"},
			want:    Result{Tag: models.TagAppsClick, Detail: "ver"},
			wantHit: true,
		},
		{
			name:    "apps text without label falls back to href",
			el:      models.Element{Tag: "a", Href: "/apps", Text: "  "},
			want:    Result{Tag: models.TagAppsClick, Detail: "/apps"},
			wantHit: true,
		},
		{
			name:    "tienda text",
			el:      models.Element{Tag: "a", Href: "#", Text: "Tienda"},
			want:    Result{Tag: models.TagAppsClick, Detail: "tienda"},
			wantHit: true,
		},
		{
			name:    "framework download",
			el:      models.Element{Tag: "a", Href: "/download", Text: "Descargar VisionUI"},
			want:    Result{Tag: models.TagDownload, Detail: "framework"},
			wantHit: true,
		},
		{
			name:    "framework download by href",
			el:      models.Element{Tag: "a", Href: "/download/framework.zip", Text: "Get it"},
			want:    Result{Tag: models.TagDownload, Detail: "framework"},
			wantHit: true,
		},
		{
			name:    "other download",
			el:      models.Element{Tag: "button", Text: "Download PDF"},
			want:    Result{Tag: models.TagDownload, Detail: "download pdf"},
			wantHit: true,
		},
		{
			name:    "purchase keyword beats cta class",
			el:      models.Element{Tag: "button", Text: "Comprar Framework", Class: "cta"},
			want:    Result{Tag: models.TagCheckoutStarted, Detail: "comprar framework"},
			wantHit: true,
		},
		{
			name:    "purchase class without text",
			el:      models.Element{Tag: "button", Class: "btn Purchase-now"},
			want:    Result{Tag: models.TagCheckoutStarted, Detail: "purchase_button"},
			wantHit: true,
		},
		{
			name:    "login",
			el:      models.Element{Tag: "a", Href: "#", Text: "Iniciar sesión"},
			want:    Result{Tag: models.TagLoginClick, Detail: "iniciar sesión"},
			wantHit: true,
		},
		{
			name:    "registration",
			el:      models.Element{Tag: "button", Text: "Crear cuenta"},
			want:    Result{Tag: models.TagRegistrationClick, Detail: "crear cuenta"},
			wantHit: true,
		},
		{
			name:    "register spelled out",
			el:      models.Element{Tag: "button", Text: "Registrarse"},
			want:    Result{Tag: models.TagRegistrationClick, Detail: "registrarse"},
			wantHit: true,
		},
		{
			name:    "primary button",
			el:      models.Element{Tag: "BUTTON", Text: "Empezar", Class: "btn btn-primary"},
			want:    Result{Tag: models.TagButtonClick, Detail: "empezar"},
			wantHit: true,
		},
		{
			name:    "cta button without text",
			el:      models.Element{Tag: "button", Class: "cta"},
			want:    Result{Tag: models.TagButtonClick, Detail: "cta_button"},
			wantHit: true,
		},
		{
			name:    "cta link is not a button",
			el:      models.Element{Tag: "a", Href: "#features", Text: "Features", Class: "cta"},
			wantHit: false,
		},
		{
			name:    "plain link",
			el:      models.Element{Tag: "a", Href: "/docs", Text: "Docs"},
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.el)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRuleOrder(t *testing.T) {
	assert.Equal(t, []string{"apps", "download", "purchase", "auth", "cta"}, RuleNames())

	// "apps" wins over a download keyword when both match
	got, ok := Classify(models.Element{Tag: "a", Href: "/apps/download", Text: "Download"})
	require.True(t, ok)
	assert.Equal(t, models.TagAppsClick, got.Tag)
}

func TestElementFromHTML(t *testing.T) {
	el, err := ElementFromHTML(`<button class="cta Primary"><span data-beacon-target>Comprar <b>Framework</b></span></button>`)
	require.NoError(t, err)
	assert.Equal(t, "button", el.Tag)
	assert.Equal(t, "cta Primary", el.Class)
	assert.Equal(t, "Comprar Framework", el.Text)

	res, ok := Classify(el)
	require.True(t, ok)
	assert.Equal(t, models.TagCheckoutStarted, res.Tag)
}

func TestElementFromHTMLInnermostTarget(t *testing.T) {
	el, err := ElementFromHTML(`<a href="/pages/store.html"><img src="x.png"></a>`)
	require.NoError(t, err)
	assert.Equal(t, "a", el.Tag)
	assert.Equal(t, "/pages/store.html", el.Href)
}

func TestElementFromHTMLWithoutInteractive(t *testing.T) {
	_, err := ElementFromHTML(`<div><p data-beacon-target>hello</p></div>`)
	assert.ErrorIs(t, err, ErrNoInteractive)
}

func TestAudit(t *testing.T) {
	page := `<html><body>
	<nav><a href="/pages/store.html">Apps</a><a href="/docs">Docs</a></nav>
	<button class="purchase">
	    Comprar
	    ahora
	</button>
	</body></html>`

	findings, err := Audit(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, findings, 3)

	assert.True(t, findings[0].Tracked)
	assert.Equal(t, models.TagAppsClick, findings[0].Result.Tag)
	assert.False(t, findings[1].Tracked)
	assert.Equal(t, models.TagCheckoutStarted, findings[2].Result.Tag)
}

func TestAuditMatchesLiveClick(t *testing.T) {
	button := "<a href=\"#\">Iniciar\n    sesión</a>"

	findings, err := Audit(strings.NewReader("<html><body>" + button + "</body></html>"))
	require.NoError(t, err)
	require.Len(t, findings, 1)

	el, err := ElementFromHTML(button)
	require.NoError(t, err)
	assert.Equal(t, el, findings[0].Element)

	_, tracked := Classify(el)
	assert.Equal(t, tracked, findings[0].Tracked)
	assert.False(t, findings[0].Tracked, "line break inside the label is kept")
}
