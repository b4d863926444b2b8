package dialogue

// Static assistant turns shown by the dialogue.
const (
	GreetingText = `Hi there! 👋 What can I help you with today?

Choose one of the following options to get manga recommendations. (Type 'help' for more info)`

	HelpText = `Here's how I work! 🤖

**Modes:**
📝 *Questionnaire Mode* — I'll ask about your preferences (genres, tone, length) and recommend manga based on your answers.
📚 *Saved Mode* — I'll recommend manga similar to the ones you've saved.

**Features:**
- Type normally to chat about manga.
- Type "reset" to start over.
- Type "help" anytime to see this message again.

Now, choose a mode to begin — or type "help" anytime if you get stuck!`

	PreferencesPromptText = `Great! Let me know your preferences:

Please tell me:
- Preferred genres (e.g., action, romance, fantasy)
- Preferred length (short, medium, long, any)
- Preferred tone (dark, light, serious, comedic, any)

You can type something like: "I like action and fantasy, any length, dark tone"`

	SavedModeText = `You're now in 📚 *Saved Mode*!

You can:
- Type a title you've saved to get similar manga, e.g. "recommend something like Attack on Titan"
- Or just say "recommend from my saved list" to get picks based on all your saved titles. In the meantime, I'll fetch some recommendations for you!`

	SelectModeFirstText = "Please select a mode first by choosing one of the options above! 😊"

	ResetText = `Chat reset ✅

Hi again! 👋 Choose a mode to get started.
(Type 'help' for more info)`

	FailureText = "⚠️ Something went wrong. Please try again later."
)
