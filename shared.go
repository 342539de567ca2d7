package football

const TaskQueueName = "football-live-task-queue"

// football-data.org v4 serves every competition under the same layout:
// https://api.football-data.org/v4/competitions/{CODE}/matches and .../standings,
// where {CODE} is e.g. CL (Champions League), PL (Premier League) or BL1 (Bundesliga).
