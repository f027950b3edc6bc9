package extract

const messageSystemPrompt = `Extract only true Socratic teaching questions where the assistant tests the user. Exclude FAQ-style questions with immediate answers. Return a JSON array.`

const messageExtractionPrompt = `Extract ONLY true Socratic teaching questions where the assistant is testing the user's understanding.

Characteristics of Socratic questions to INCLUDE:
1. Questions that appear at or near the END of the assistant's message
2. Questions that expect the USER to provide an answer (not rhetorical)
3. Often numbered (Q1:, Q2:) or marked (Test Question, Quick Check)
4. The answer is NOT provided in the same message

Questions to EXCLUDE:
1. FAQ-style headers where the answer immediately follows
2. Questions in the middle of explanatory text
3. Rhetorical questions
4. Section headers posed as questions

IMPORTANT: Include any necessary context that makes the question complete and self-contained.
For example, if the message says "If you have a DNA strand that is 10 base pairs long... Q: How many nucleotides total does that mean?"
Extract as: "If you have a DNA strand that is 10 base pairs long, how many nucleotides total does that mean?"

For each question found:
1. Extract the COMPLETE question including any setup/context needed to understand it
2. Generate a comprehensive answer based on the message content

Return JSON array:
[{"question": "complete self-contained question", "answer": "comprehensive answer"}]

If no pedagogical questions found, return empty array [].

MESSAGE:
`

const conversationSystemPrompt = `Extract Q: style pedagogical questions from conversations. Focus on exact question text after Q: markers. Return a JSON array.`

const conversationExtractionPrompt = `You are extracting pedagogical questions from a Socratic dialogue where the ASSISTANT tests the USER's understanding.

Find ALL instances where the assistant asks questions in these formats:
- "Q: [question]"
- "Q1: [question]", "Q2: [question]", etc.
- "**Q: [question]**"
- Questions under headers like "Quick Check", "Test Question", "Check #"

For each question:
1. Extract the EXACT question text (everything after "Q:" or similar marker)
2. Look for the answer in:
   - The assistant's later explanation
   - A synthesis of the conversation context
   - Generate a correct answer based on the teaching material

IMPORTANT: Look through the ENTIRE conversation, including within long messages.

Return JSON with these exact questions:
[{"question": "exact question text", "answer": "comprehensive answer"}]

CONVERSATION:
`
