package classify

const filterSystemPrompt = `Analyze questions to identify true Socratic teaching questions. Respond with a JSON object.`

const filterPrompt = `You are analyzing questions extracted from ChatGPT conversations where the assistant was teaching the user through the Socratic method.

A Socratic teaching question is one where:
- The assistant asks the user to test their understanding
- The user needs to think and apply what they learned
- It's checking if the user grasped a concept
- Examples: "What are the three components of a DNA nucleotide?", "Which bases pair together?", "If you have a DNA strand that is 10 base pairs long, how many nucleotides total does that mean?"

NOT Socratic teaching questions:
- Questions the user asked the assistant
- FAQ-style questions with immediate answers
- Meta questions about the process
- Rhetorical questions in explanations

Important: Many good teaching questions don't have explicit markers like "Q:". Focus on whether the question tests understanding.

For this question, respond with JSON:
{
  "is_socratic": true/false,
  "reasoning": "brief explanation",
  "category": "socratic_test" | "faq" | "rhetorical" | "meta" | "other"
}

Question to analyze:`
