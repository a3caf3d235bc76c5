package stage

import (
	"fmt"
	"strings"
)

func summaryPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are an empathetic assistant for a mental health journaling app.\n")
	b.WriteString("Summarize the user's journal entry in 1-3 supportive sentences.\n\n")
	fmt.Fprintf(&b, "Journal entry (verbatim):\n%q\n\n", transcript)
	b.WriteString("Reply with only the summary text.")
	return b.String()
}

func responsePrompt(summary string, affect *AffectPayload) string {
	var b strings.Builder
	b.WriteString("You are an empathetic assistant for a mental health journaling app.\n")
	b.WriteString("Using the provided summary (and emotion cues if present), write a 1-3 sentence response ")
	b.WriteString("that acknowledges feelings and offers a gentle next step.\n\n")
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	if affect != nil {
		fmt.Fprintf(&b, "Emotion (optional): valence=%.3f, arousal=%.3f, dominance=%.3f\n\n",
			affect.VAD.Valence, affect.VAD.Arousal, affect.VAD.Dominance)
	} else {
		b.WriteString("Emotion (optional): not available\n\n")
	}
	b.WriteString(`Instructions:
1. Interpret the user's emotional state from the valence/arousal/dominance values when present.
   - Low valence suggests sadness, frustration, or distress; high valence suggests happiness or satisfaction.
   - High arousal suggests agitation, restlessness, or excitement; low arousal suggests calmness or fatigue.
   - Low dominance suggests vulnerability or lack of control; high dominance suggests confidence or empowerment.
2. Combine this interpretation with the summary to understand the context.
3. Respond in a warm, supportive, nonjudgmental tone.
   - Low valence with high arousal: subtly acknowledge the negative feelings and offer grounding advice.
   - Low valence with low arousal: gently validate sadness or fatigue and offer comfort and encouragement.
   - High valence with high arousal: celebrate the excitement but encourage balance.
   - High valence with low arousal: encourage gratitude, reflection, or savoring calm moments.
   - Low dominance: focus on empowerment and small steps the user can control.
   - High dominance: reinforce their sense of agency while reminding them to stay self-compassionate.
4. Keep it short and readable, cordial and friend-like without being too informal.
   Never give medical advice or directives beyond safe coping strategies.

Output format: respond only with the text of your reply. No JSON. No additional commentary.`)
	return b.String()
}

func musicPrompt(summary string, affect *AffectPayload) string {
	mood := "reflective and calm"
	if affect != nil {
		switch {
		case affect.VAD.Valence >= 0.5 && affect.VAD.Arousal >= 0.5:
			mood = "bright and uplifting"
		case affect.VAD.Valence >= 0.5:
			mood = "warm and gently optimistic"
		case affect.VAD.Arousal >= 0.5:
			mood = "soothing and grounding"
		default:
			mood = "soft and comforting"
		}
	}
	return fmt.Sprintf(
		"Generate a short %s instrumental track to close out a journaling session. Day in brief: %s",
		mood, summary)
}
