package mlserver

const assistantTemplate = `You are a helpful assistant and expert. You have to help the user to solve their queries. ` +
	`If you don't know the answer simply say "I don't know". ` +
	`Finally try to keep the answer crispy and to the point.

User: %s

Answer:`

const tagsTemplate = `You are an assistant who extracts relevant tags from user questions.` +
	`Return tags as a JSON list of strings only.

User: %s

Answer:`
