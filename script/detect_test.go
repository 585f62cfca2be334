package script

import "testing"

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		name    string
		concept string
		want    ProjectType
	}{
		{"plain story", "A lonely robot explores a abandoned city", ProjectTypeStory},
		{"commercial keyword", "New smartphone launch commercial", ProjectTypeCommercial},
		{"advert keyword", "An advert for running shoes", ProjectTypeCommercial},
		{"promo keyword", "Summer promo for a juice brand", ProjectTypeCommercial},
		{"product keyword", "Showcase the product in a kitchen", ProjectTypeCommercial},
		{"buy now phrase", "Energetic spot ending with buy now", ProjectTypeCommercial},
		{"case insensitive", "A PROMOTIONAL video for headphones", ProjectTypeCommercial},
		{"no keywords", "A knight crosses a frozen lake at dawn", ProjectTypeStory},
		{"empty concept", "", ProjectTypeStory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectProjectType(tt.concept); got != tt.want {
				t.Errorf("DetectProjectType(%q) = %q, want %q", tt.concept, got, tt.want)
			}
		})
	}
}

func TestTemperatureFor(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{CreativityFactual, 0.5},
		{CreativityBalanced, 0.7},
		{CreativityCreative, 0.9},
		{"unknown", 0.7},
		{"", 0.7},
	}

	for _, tt := range tests {
		if got := TemperatureFor(tt.level); got != tt.want {
			t.Errorf("TemperatureFor(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNormalizeCreativity(t *testing.T) {
	if got := NormalizeCreativity("creative"); got != CreativityCreative {
		t.Errorf("NormalizeCreativity(creative) = %q", got)
	}
	if got := NormalizeCreativity("wild"); got != CreativityBalanced {
		t.Errorf("NormalizeCreativity(wild) = %q, want balanced", got)
	}
	if got := NormalizeCreativity("Factual"); got != CreativityFactual {
		t.Errorf("NormalizeCreativity(Factual) = %q, want factual", got)
	}
	if got := NormalizeCreativity("CREATIVE"); got != CreativityCreative {
		t.Errorf("NormalizeCreativity(CREATIVE) = %q, want creative", got)
	}
}

func TestClampSceneCount(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{1, 1},
		{5, 5},
		{20, 20},
		{0, 5},
		{-3, 5},
		{21, 5},
	}

	for _, tt := range tests {
		if got := ClampSceneCount(tt.in); got != tt.want {
			t.Errorf("ClampSceneCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEnforcePlaceholder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"the character", "the character walks away", "{character} walks away"},
		{"bare character", "character looks up", "{character} looks up"},
		{"possessive", "the character's hat blows off", "{character}'s hat blows off"},
		{"already placeholder", "{character} runs", "{character} runs"},
		{"mixed", "{character} sees the character in a mirror", "{character} sees {character} in a mirror"},
		{"word boundary", "characteristic patterns remain", "characteristic patterns remain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforcePlaceholder(tt.in); got != tt.want {
				t.Errorf("EnforcePlaceholder(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyTriggerWord(t *testing.T) {
	got := ApplyTriggerWord("{character} holds the {product}", "merida")
	want := "merida holds the merida"
	if got != want {
		t.Errorf("ApplyTriggerWord = %q, want %q", got, want)
	}

	if got := ApplyTriggerWord("{character} waits", ""); got != "{character} waits" {
		t.Errorf("empty trigger word should leave text unchanged, got %q", got)
	}
}
