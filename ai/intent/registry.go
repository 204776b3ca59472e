// Package intent classifies free-text user input into wellness intents.
package intent

import (
	"regexp"
	"slices"
	"strings"
	"sync"
)

// Intent identifies a user intention. Labels are Spanish-first because the
// primary user base is, with English keywords registered alongside.
type Intent string

const (
	IntentNutrition  Intent = "analizar_nutricion"
	IntentTraining   Intent = "planificar_entrenamiento"
	IntentRecovery   Intent = "evaluar_recuperacion"
	IntentMotivation Intent = "apoyo_motivacional"
	IntentGenetics   Intent = "consulta_genetica"
	IntentWellness   Intent = "bienestar_femenino"
	IntentProgress   Intent = "revisar_progreso"
	IntentBiohacking Intent = "optimizar_biohacking"
	IntentGeneral    Intent = "general"
)

// Config holds the matching rules for a single intent.
type Config struct {
	Intent   Intent
	Keywords []string         // substring match, case-insensitive
	Patterns []*regexp.Regexp // higher precision than keywords
	Priority int              // higher = checked first
}

// Registry manages intent configurations. New intents can be registered at
// runtime without touching the matcher.
type Registry struct {
	mu          sync.RWMutex
	configs     map[Intent]Config
	sortedByPri []Config
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[Intent]Config)}
}

// Register adds or updates an intent configuration.
func (r *Registry) Register(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[cfg.Intent] = cfg
	r.rebuildSortedCache()
}

// rebuildSortedCache rebuilds the priority-sorted config slice.
// Must be called with lock held.
func (r *Registry) rebuildSortedCache() {
	configs := make([]Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		configs = append(configs, cfg)
	}
	slices.SortFunc(configs, func(a, b Config) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return strings.Compare(string(a.Intent), string(b.Intent))
	})
	r.sortedByPri = configs
}

// Match performs rule-based matching against a single intent.
// Returns: matched intent, confidence (0-1), whether a match was found.
func (r *Registry) Match(input string) (Intent, float32, bool) {
	matches := r.MatchAll(input)
	if len(matches) == 0 {
		return IntentGeneral, 0, false
	}
	return matches[0].Intent, matches[0].Confidence, true
}

// Hit is one rule match. Hits come back in priority order, pattern matches
// before keyword matches at equal priority.
type Hit struct {
	Intent     Intent
	Confidence float32
}

// MatchAll returns every intent whose rules match the input, at most one hit
// per intent, ordered by registry priority.
func (r *Registry) MatchAll(input string) []Hit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lowerInput := strings.ToLower(input)
	var hits []Hit

	for _, cfg := range r.sortedByPri {
		matched := false
		for _, pattern := range cfg.Patterns {
			if pattern.MatchString(input) {
				hits = append(hits, Hit{Intent: cfg.Intent, Confidence: 0.9})
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		for _, kw := range cfg.Keywords {
			if strings.Contains(lowerInput, strings.ToLower(kw)) {
				hits = append(hits, Hit{Intent: cfg.Intent, Confidence: 0.7})
				break
			}
		}
	}
	return hits
}

// Intents returns all registered intent labels.
func (r *Registry) Intents() []Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Intent, 0, len(r.sortedByPri))
	for _, cfg := range r.sortedByPri {
		out = append(out, cfg.Intent)
	}
	return out
}

// RegisterDefaults registers the built-in wellness intent rules.
func (r *Registry) RegisterDefaults() {
	r.Register(Config{
		Intent:   IntentNutrition,
		Keywords: []string{"comer", "comida", "nutrición", "nutricion", "dieta", "proteína", "proteina", "caloría", "caloria", "suplemento", "ayuno", "macros", "eat", "meal", "nutrition", "diet", "protein", "supplement"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)qu[eé] (debo|puedo|deber[ií]a) comer`),
			regexp.MustCompile(`(?i)what should i eat`),
		},
		Priority: 100,
	})
	r.Register(Config{
		Intent:   IntentTraining,
		Keywords: []string{"entrenar", "entrenamiento", "rutina", "ejercicio", "fuerza", "series", "repeticiones", "cardio", "pesas", "workout", "training", "exercise", "routine", "strength", "sets", "reps"},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)plan(ea|ifica)r? (mi |una )?(rutina|entrenamiento)`),
		},
		Priority: 100,
	})
	r.Register(Config{
		Intent:   IntentRecovery,
		Keywords: []string{"recuperación", "recuperacion", "descanso", "dormir", "sueño", "fatiga", "cansado", "cansada", "agujetas", "lesión", "lesion", "recovery", "rest", "sleep", "fatigue", "sore", "tired", "injury"},
		Priority: 100,
	})
	r.Register(Config{
		Intent:   IntentMotivation,
		Keywords: []string{"motivación", "motivacion", "ánimo", "animo", "desanimado", "desanimada", "estrés", "estres", "estresado", "estresada", "ansiedad", "abandonar", "motivation", "stressed", "anxious", "give up", "discouraged"},
		Priority: 110, // emotional signals outrank topical ones
	})
	r.Register(Config{
		Intent:   IntentGenetics,
		Keywords: []string{"genética", "genetica", "gen", "adn", "polimorfismo", "herencia", "genetic", "dna", "genome", "snp"},
		Priority: 100,
	})
	r.Register(Config{
		Intent:   IntentWellness,
		Keywords: []string{"hormona", "hormonal", "ciclo", "menstrual", "menopausia", "embarazo", "hormone", "cycle", "menopause", "pregnancy"},
		Priority: 100,
	})
	r.Register(Config{
		Intent:   IntentProgress,
		Keywords: []string{"progreso", "avance", "resultados", "métricas", "metricas", "peso", "medidas", "histórico", "historico", "progress", "results", "metrics", "tracking"},
		Priority: 90,
	})
	r.Register(Config{
		Intent:   IntentBiohacking,
		Keywords: []string{"biohacking", "optimizar", "optimización", "optimizacion", "longevidad", "nootrópico", "nootropico", "crioterapia", "sauna", "hrv", "longevity", "nootropic", "cold plunge", "optimization"},
		Priority: 80,
	})
}

// DefaultRegistry returns a registry preloaded with the built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDefaults()
	return r
}
