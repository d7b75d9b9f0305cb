package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

const commonPrefix = `RÈGLES GÉNÉRALES (obligatoires) :
1. Analyse uniquement les données fournies dans ce message.
2. Ne jamais inventer : si une information n'est pas explicitement présente, retourne null ou "a_verifier".
3. Chaque problème doit inclure un extrait exact ("texte") présent dans les données.
4. Si c'est ambigu, utilise type="suspicion" ou statut="a_verifier", jamais une affirmation certaine.
5. Réponds strictement en JSON. Aucun texte en dehors du JSON.

`

const stage1Template = `{{prefix}}DATE DE RÉFÉRENCE : {{.Date}}

CONTEXTE GLOBAL :
- entreprise_attendue : {{.Ctx.Company}}
- activite : {{.Ctx.Activity}}
- telephone_attendu : {{orNull .Ctx.ExpectedPhone}}
- gerant_attendu : {{orNull .Ctx.ExpectedManager}}

CONTEXTE PAGE :
- page_url : {{.PageURL}}
- type_page : {{.PageType}}

DONNÉES SCRAPÉES (incluent potentiellement header/footer) :
texte_page :
"""
{{.Text}}
"""

tel_links_extraits :
{{.TelLinksJSON}}

MISSION :
1. ORTHOGRAPHE : détecter les fautes d'orthographe et grammaire (fautes réelles uniquement, pas du style).
2. EXTRACTION : trouver les téléphones et le nom du responsable/gérant s'ils sont présents.
3. COHÉRENCE : si les valeurs attendues sont fournies, comparer téléphone_trouve et nom_trouve aux attendus.

RÈGLES :
- Téléphone : liste tous les numéros trouvés (texte + tel_links).
- Nom : extraire le nom du propriétaire/gérant/responsable (sans titres : Monsieur/Madame/M./Mme/Mr/Mrs).
- Cohérence : "ok" si identique, "different" si différent, "non_trouve" si non trouvé, "non_verifiable" si attendu = null

EXCLUSIONS IMPORTANTES (ne pas extraire) :
- IGNORER les noms et téléphones trouvés dans les sections d'avis/témoignages clients.
- Ces sections peuvent s'appeler : "Avis", "Témoignages", "Reviews", "Nos clients témoignent", "Ce que disent nos clients", "Avis clients", "Témoignages clients", "Ils nous font confiance", ou tout contexte similaire suggérant des retours de clients.
- Les noms de clients qui laissent des avis ne doivent PAS être inclus dans noms_trouves.
- Seuls les noms et téléphones du gérant/propriétaire/responsable de l'entreprise doivent être extraits.

RÉPONDS EN JSON :
{
  "page_url": "{{.PageURL}}",
  "orthographe": [
    {"erreur": "", "correction": "", "contexte": "", "gravite": "mineure|importante"}
  ],
  "extraction": {
    "telephones_trouves": [],
    "noms_trouves": []
  },
  "coherence": {
    "telephone_trouve": null,
    "nom_trouve": null,
    "telephone_statut": "ok|different|non_trouve|non_verifiable",
    "nom_statut": "ok|different|non_trouve|non_verifiable",
    "note": ""
  }
}

Si aucune faute : orthographe = [].`

const stage2Template = `{{prefix}}DATE DE RÉFÉRENCE : {{.Date}}

CONTEXTE GLOBAL :
- entreprise_attendue : {{.Ctx.Company}}
- activite : {{.Ctx.Activity}}
- gerant_attendu : {{orNull .Ctx.ExpectedManager}}
- telephone_attendu : {{orNull .Ctx.ExpectedPhone}}
- adresse_attendue : {{orNull .Ctx.ExpectedAddress}}
- siret_attendu : {{orNull .Ctx.ExpectedSIRET}}
- email_attendu : {{orNull .Ctx.ExpectedEmail}}

CONTEXTE PAGE :
- page_url : {{.PageURL}}
- type_page_legale : {{.PageType}}

TEXTE PAGE LÉGALE :
"""
{{.Text}}
"""

MISSION :
Vérifier si cette page légale est cohérente et complète par rapport aux informations attendues.

À VÉRIFIER :
- Présence d'éléments d'identification (éditeur, contact, etc.)
- Cohérence avec entreprise_attendue
- Cohérence gérant/téléphone/email/siret/adresse si attendus fournis
- Références à d'autres entreprises/villes → suspicion (copier-coller)
- Si la page ne correspond pas à son type → incohérence

RÉPONDS EN JSON :
{
  "page_url": "{{.PageURL}}",
  "type_page_legale": "{{.PageType}}",
  "conforme": true,
  "issues": [
    {"texte": "", "raison": "", "type": "manquant|copier_coller|incoherent|suspicion", "gravite": "mineure|importante"}
  ]
}

Si aucune anomalie : {"conforme": true, "issues": []}`

const stage3Template = `{{prefix}}DATE DE RÉFÉRENCE : {{.Date}}

CONTEXTE GLOBAL :
- entreprise : "{{.Ctx.Company}}"
- activite : "{{.Ctx.Activity}}"
- details_contexte : {{orNull .Ctx.Details}}
- mots_cles_offre : {{orNull .Ctx.OfferKeywords}}

CONTEXTE PAGE :
- page_url : {{.PageURL}}
- type : {{if .Home}}home{{else}}page_interne{{end}}
- theme_attendu_si_interne : {{orNull .Theme}}
- contexte_additionnel : {{orNull .PageContext}}

TEXTE PAGE :
"""
{{.Text}}
"""
{{- if .Outline}}

STRUCTURE DE LA PAGE (markdown, titres et listes) :
"""
{{.Outline}}
"""
{{- end}}

MISSION :
1. Vérifier la cohérence globale du contenu avec l'entreprise et l'activité
2. Détecter : hors-sujet, copier-coller, villes/entreprises suspectes, contradictions
3. Détecter les promos avec dates (voir RÈGLES PROMOS ci-dessous)
4. QA Copywriting : formulations floues/faibles, promesses vagues, CTA incohérents

RÈGLES HEADER/FOOTER :
- Le header/footer font partie de l'analyse
- MAIS la navigation (liste de pages) n'est PAS une incohérence
- Les infos concrètes (offre, ville, téléphone, CTA) peuvent être signalées si incohérentes

RÈGLES PROMOS ET DATES (TRÈS IMPORTANT) :
- Si une promo mentionne une date de fin AVEC ANNÉE EXPLICITE (ex: "31 décembre 2024", "15/01/2025") :
  → Comparer à la date de référence ({{.Date}})
  → Si dépassée : type = "promo_expiree", gravité = "importante"
  → Si pas dépassée : pas de problème

- Si une promo mentionne une date de fin SANS ANNÉE (ex: "jusqu'au 31 décembre", "valable jusqu'au 15 janvier") :
  → NE JAMAIS utiliser "promo_expiree" (l'année est inconnue)
  → Utiliser type = "promo_date_ambigue"
  → Comparer jour/mois à la date de référence en supposant l'année courante :
    - Si la date n'est pas encore passée cette année : gravité = "mineure" (probablement OK)
    - Si la date est passée cette année : gravité = "importante" (probablement expirée, à vérifier)
  → Ajouter un champ "promo" avec les détails

RÉPONDS EN JSON :
{
  "page_url": "{{.PageURL}}",
  "coherent": true,
  "issues": [
    {
      "texte": "",
      "raison": "",
      "type": "hors_sujet|copier_coller|contradiction|promo_expiree|promo_date_ambigue|suspicion",
      "gravite": "mineure|importante",
      "promo": {
        "date_fin_texte": "31 décembre",
        "annee_presente": false,
        "date_fin_interpretee": "2025-12-31"
      }
    }
  ],
  "copywriting_issues": [
    {"texte": "", "raison": "", "suggestion": ""}
  ]
}

NOTES :
- Le champ "promo" est optionnel, uniquement pour les types promo_expiree et promo_date_ambigue
- Si coherent : issues = []. copywriting_issues peut être [] indépendamment.
- Exemple : "Jusqu'au 31 décembre" avec currentDateISO=2025-12-29 → promo_date_ambigue, mineure (pas encore passé)
- Exemple : "Jusqu'au 15 novembre" avec currentDateISO=2025-12-29 → promo_date_ambigue, importante (déjà passé cette année)`

const stage4Template = `{{prefix}}CONTEXTE :
- entreprise : "{{.Ctx.Company}}"
- activite : "{{.Ctx.Activity}}"
- ville_attendue : {{orNull .Ctx.ExpectedCity}}
- domaines_attendus : {{.DomainsJSON}}
- telephone_attendu : {{orNull .Ctx.ExpectedPhone}}

CONTEXTE PAGE :
- page_url : {{.PageURL}}

LIENS EXTRAITS (JSON) :
{{.LinksJSON}}

MISSION :
Évaluer chaque lien et signaler les liens suspects.

RÈGLES :
- Les liens {{.TrustedDomain}} sont toujours valides
- statut = "valide" si cohérent et attendu
- statut = "suspect" si semble incohérent (autre entreprise, autre ville, domaine étrange, tel différent)
- statut = "a_verifier" si impossible de juger avec les infos fournies

CAS SPÉCIAUX :
- Google Maps : si le lien contient une ville/lieu différent de ville_attendue → suspect
- tel: : si différent de telephone_attendu → suspect

RÉPONDS EN JSON :
{
  "page_url": "{{.PageURL}}",
  "liens": [
    {"url": "", "type": "internal|external|tel|mailto|maps|anchor|js_redirect|unknown", "texte": "", "statut": "valide|suspect|a_verifier", "raison": ""}
  ],
  "resume": {
    "total": 0,
    "valides": 0,
    "suspects": 0,
    "a_verifier": 0
  }
}

Note : Ne modifie jamais les URL.`

const stage5Template = `{{prefix}}CONTEXTE GLOBAL :
- entreprise : "{{.Ctx.Company}}"
- activite : "{{.Ctx.Activity}}"

META TAGS EXTRAITS (JSON) :
{{.MetasJSON}}

MISSION :
Pour chaque page, vérifier si le meta title et la meta description sont cohérents.

CRITÈRES :
- Title vide → invalide
- Description vide → invalide
- Home (/) : title/description peuvent être généraux
- Page interne : title doit refléter le thème si l'URL est explicite
- Longueurs : title < {{.TitleMin}} ou > {{.TitleMax}} → alerte, description < {{.DescriptionMin}} ou > {{.DescriptionMax}} → alerte
- Doublons exacts → alerte

RÉPONDS EN JSON :
{
  "metas": [
    {
      "url": "",
      "title": "",
      "description": "",
      "title_valide": true,
      "description_valide": true,
      "alertes": [],
      "commentaire": "",
      "suggestion_title": null,
      "suggestion_description": null
    }
  ],
  "doublons": {
    "titles_identiques": [{"title": "", "urls": []}],
    "descriptions_identiques": [{"description": "", "urls": []}]
  }
}`

const stage6Template = `{{prefix}}CONTEXTE GLOBAL :
- entreprise : "{{.Ctx.Company}}"
- activite : "{{.Ctx.Activity}}"
- url_auditee : "{{.BaseURL}}"
- date_reference : "{{.Date}}"

RÉSULTATS DES ÉTAPES (JSON) :
etape1 : {{.Stage1JSON}}

etape2 : {{.Stage2JSON}}

etape3 : {{.Stage3JSON}}

etape4 : {{.Stage4JSON}}

etape5 : {{.Stage5JSON}}

MISSION :
Créer un rapport final de QA pour décider si la mise en ligne est possible.

DÉCISION :
- no_go : erreurs bloquantes (mauvais téléphone, pages légales incohérentes, liens critiques suspects)
- go_avec_reserves : erreurs importantes mais non bloquantes
- go : très peu de problèmes

PRIORISATION :
- P0 : bloqueurs (téléphone/CTA erroné, légales incohérentes, metas vides sur home)
- P1 : importants (fautes nombreuses, metas incohérentes, offres expirées)
- P2 : améliorations (optimisations secondaires)

RÉPONDS EN JSON :
{
  "decision": "go|no_go|go_avec_reserves",
  "priorites": {
    "P0": [{"source": "etape_X", "page_url": "", "resume": ""}],
    "P1": [],
    "P2": []
  },
  "resume": "",
  "checklist": []
}`

var prompts = parsePrompts(map[string]string{
	Stage1: stage1Template,
	Stage2: stage2Template,
	Stage3: stage3Template,
	Stage4: stage4Template,
	Stage5: stage5Template,
	Stage6: stage6Template,
})

// parsePrompts registers each body under its stage label, which is the name
// renderPrompt executes.
func parsePrompts(bodies map[string]string) *template.Template {
	root := template.New("prompts").Funcs(template.FuncMap{
		"prefix": func() string { return commonPrefix },
		"orNull": orNull,
	})
	for stage, body := range bodies {
		template.Must(root.New(stage).Parse(body))
	}
	return root
}

// promptData feeds every stage template. Each stage reads the fields it needs.
type promptData struct {
	Date          string
	Ctx           AnalysisContext
	PageURL       string
	PageType      string
	Text          string
	Outline       string
	TelLinksJSON  string
	Home          bool
	Theme         string
	PageContext   string
	DomainsJSON   string
	LinksJSON     string
	TrustedDomain string
	MetasJSON     string

	TitleMin       int
	TitleMax       int
	DescriptionMin int
	DescriptionMax int

	BaseURL    string
	Stage1JSON string
	Stage2JSON string
	Stage3JSON string
	Stage4JSON string
	Stage5JSON string
}

func orNull(s string) string {
	if strings.TrimSpace(s) == "" {
		return "null"
	}
	return s
}

func renderPrompt(stage string, data promptData) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, stage, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}
	return b.String(), nil
}

// compactJSON and indentJSON keep URLs readable: no HTML escaping of & < >.
func compactJSON(v any) string {
	return encodeJSON(v, "", "[]")
}

func indentJSON(v any) string {
	return encodeJSON(v, "  ", "null")
}

func encodeJSON(v any, indent, onError string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return onError
	}
	return strings.TrimSuffix(b.String(), "\n")
}
