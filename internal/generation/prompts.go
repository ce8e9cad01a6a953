package generation

import (
	"fmt"
	"strings"
)

// Style selects a variant of the signature art style.
type Style string

const (
	StyleClassic          Style = "classic"
	StyleMonochromeInk    Style = "monochrome-ink"
	StylePastelWatercolor Style = "pastel-watercolor"
	StyleUkiyoE           Style = "ukiyo-e"
	StyleArtNouveau       Style = "art-nouveau"
	StyleCyberpunkGlitch  Style = "cyberpunk-glitch"
)

// Styles lists every style in display order; the first is the default.
var Styles = []Style{
	StyleClassic,
	StyleMonochromeInk,
	StylePastelWatercolor,
	StyleUkiyoE,
	StyleArtNouveau,
	StyleCyberpunkGlitch,
}

func ParseStyle(s string) (Style, error) {
	for _, st := range Styles {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown style %q", s)
}

// Quality is the detail tier of an image request.
type Quality string

const (
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

var Qualities = []Quality{QualityStandard, QualityHigh}

func ParseQuality(s string) (Quality, error) {
	for _, q := range Qualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// ImageAspectRatios are the supported still-image aspect ratios.
var ImageAspectRatios = []string{"1:1", "16:9", "9:16"}

func ValidImageAspectRatio(s string) bool {
	for _, ar := range ImageAspectRatios {
		if ar == s {
			return true
		}
	}
	return false
}

const (
	MinOutputs = 1
	MaxOutputs = 4
)

const artistStylePrompt = `You are an AI artist with a consistent, recognizable signature style. Follow these rules for every image.

Philosophy: modern digital illustration blended with classic hand-drawn animation appeal and a warm, heartfelt atmosphere. Clean and focused, never cluttered.
Line art: dark sepia or warm brown lines, never pure black, with subtle weight variation that feels hand-drawn.
Color and shading: soft textured coloring like digital watercolor or colored pencil. Soft cel shading with gentle gradients; shadows use cooler, desaturated versions of the base color. Vibrant yet harmonious palette.
Lighting: soft, diffused light with sparing warm highlights.
Characters: appealing and expressive, large emotive eyes, softly rounded features, slightly stylized proportions.
Backgrounds: painterly and slightly impressionistic so characters stay the focal point.
Finish: a clear focal point and a very subtle paper texture over the whole image.`

var stylePrompts = map[Style]string{
	StyleClassic: "",
	StyleMonochromeInk: `
Style variant: Monochrome Ink
- Strictly black and white with dark sepia, warm grays and cream backgrounds.
- Emphasize line art like an ink drawing or woodblock print; shade with cross-hatching and stippling.`,
	StylePastelWatercolor: `
Style variant: Pastel Watercolor
- Light pastel palette of soft pinks, baby blues, mint greens and lavender.
- Light watercolor washes with soft bleeding edges and lighter brown line art; dreamy and gentle.`,
	StyleUkiyoE: `
Style variant: Ukiyo-e
- Japanese woodblock print look with strong outlines, flat color areas and a limited traditional palette.
- Asymmetrical, dynamic compositions on a handmade-paper texture.`,
	StyleArtNouveau: `
Style variant: Art Nouveau
- Long sinuous organic lines, decorative floral motifs woven into the design.
- Harmonious muted tones with gold or silver accents.`,
	StyleCyberpunkGlitch: `
Style variant: Cyberpunk Glitch
- Dark futuristic backgrounds with neon pinks, blues and purples.
- Digital artifacts such as pixelation, scan lines and chromatic aberration; gritty and high-tech.`,
}

var qualityPrompts = map[Quality]string{
	QualityStandard: "",
	QualityHigh:     "Render intricate detail at masterpiece quality, paying close attention to texture, lighting and subtle nuance.",
}

func aspectRatioInstruction(ar string) string {
	desc := "1:1 square"
	switch ar {
	case "16:9":
		desc = "16:9 widescreen landscape"
	case "9:16":
		desc = "9:16 tall portrait"
	}
	return fmt.Sprintf("\n\nMANDATORY OUTPUT FORMAT: the final image's aspect ratio MUST be %s. Do not default to a square image unless asked for 1:1.", desc)
}

func negativeInstruction(negative string) string {
	negative = strings.TrimSpace(negative)
	if negative == "" {
		return ""
	}
	return fmt.Sprintf("\n\nNegative prompt: the final image must not contain any of the following: %q.", negative)
}

func expansionPrompt(userPrompt string) string {
	return fmt.Sprintf(`You are a creative assistant and expert prompt engineer for an image generation model. Expand the user's core idea into a vivid, detailed prompt.
Keep the key subject, then describe lighting, environment, mood and specific details that bring it to life.
Reply with one descriptive paragraph and nothing else.

Original prompt:
%q`, userPrompt)
}

const referenceAnalysisPrompt = `You are an expert art analyst. Analyze the provided image(s) in depth:
1. Emotional core and narrative: the central emotion or story, expressions, body language and theme.
2. Atmosphere and mood, and how it is created.
3. Color and light: dominant colors, their effect, and how lighting shapes focus.
4. Composition: focal point and how lines, shapes and balance guide the eye.
5. Synthesis: one comprehensive description of what the image is about, detailed enough for another artist to recreate its soul, not only its form.`

func imagenPrompt(style Style, quality Quality, userPrompt, analysis, negative string) string {
	var b strings.Builder
	b.WriteString(artistStylePrompt)
	b.WriteString("\n")
	b.WriteString(stylePrompts[style])
	if analysis != "" {
		instr := userPrompt
		if strings.TrimSpace(instr) == "" {
			instr = "Create an image based on the analysis."
		}
		fmt.Fprintf(&b, "\n\nBased on the following analysis of a reference image, create a new illustration in your signature style:\n%q", analysis)
		fmt.Fprintf(&b, "\n\nIncorporate the user's specific instructions: %q", instr)
	} else {
		fmt.Fprintf(&b, "\n\nUser's request: %q", userPrompt)
	}
	fmt.Fprintf(&b, "\n\nQuality instructions: %s", qualityPrompts[quality])
	b.WriteString(negativeInstruction(negative))
	return b.String()
}

func remakePrompt(style Style, quality Quality, aspectRatio, userPrompt, negative string, withReferences bool) string {
	artist := artistStylePrompt + aspectRatioInstruction(aspectRatio) + stylePrompts[style]
	var b strings.Builder
	if withReferences {
		instr := userPrompt
		if strings.TrimSpace(instr) == "" {
			instr = "Combine them creatively."
		}
		b.WriteString(artist)
		b.WriteString("\n\nTask: redraw the base image(s), provided first, incorporating the style, mood and elements of the reference images that follow.")
		fmt.Fprintf(&b, "\n\nUser's instructions: %q", instr)
	} else {
		b.WriteString("Task: you are an expert image editor. Edit the provided image following the user's instructions; the output is a modified version of the original. Only if no edit instruction is given, redraw the image in your signature style.")
		fmt.Fprintf(&b, "\n\nYour signature style (use if redrawing):\n%s", artist)
		fmt.Fprintf(&b, "\n\nUser's editing instructions: %q", userPrompt)
	}
	fmt.Fprintf(&b, "\n\nQuality instructions: %s", qualityPrompts[quality])
	b.WriteString(negativeInstruction(negative))
	return b.String()
}

const decompositionAnalysisPrompt = `Identify the distinct objects and characters in this image that could be separated into their own layers.
Reply with a JSON array of short, unique English labels ordered from most to least prominent, for example ["girl in red coat", "white dog", "oak tree"].
Do not include the background itself.`

func extractionPrompt(label string) string {
	return fmt.Sprintf(`Isolate only the %q from the provided image and reconstruct it in full, including any parts hidden by other objects.
Keep its original look, colors and proportions. Place it alone on a fully transparent background with nothing else in the frame.`, label)
}

// DefaultCompositionDirective is used when the user gives no arrangement.
const DefaultCompositionDirective = "Arrange the subjects automatically into a single natural, coherent scene, inferring the most fitting layout, scale and lighting."

func compositionPrompt(directive string) string {
	if strings.TrimSpace(directive) == "" {
		directive = DefaultCompositionDirective
	}
	return fmt.Sprintf(`Combine all provided images into one new illustration in your signature style.
Keep each subject recognizable and blend them with consistent lighting and perspective.

Arrangement: %s

%s`, directive, artistStylePrompt)
}

// DefaultVideoPrompt is sent when a video request has no prompt.
const DefaultVideoPrompt = "Bring this image to life, animating it creatively."
